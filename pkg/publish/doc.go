// Package publish commits a rendered page to a git repository.
//
// A [Publisher] keeps a working checkout of the destination repository. Each
// run brings the checkout up to date with the remote branch, reads the page
// template from it, renders, writes the output file and commits. The branch
// is pushed only when the commit moved HEAD; an unchanged page produces no
// commit and no push.
//
// Push credentials are written to a git-credentials style file for the
// duration of the push and removed afterwards, whether or not the push
// succeeded.
//
// A failed run is retried per [RetryPolicy]. The default policy runs twice
// and wipes the checkout before the second attempt.
package publish
