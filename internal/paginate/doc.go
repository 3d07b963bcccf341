// Package paginate accumulates the pages of a cursor-paginated list call.
package paginate
