// Package downstream executes authenticated JSON requests against the
// platform API and folds each response into a Result or an apierr error.
package downstream
