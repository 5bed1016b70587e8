// Package integration holds end-to-end tests of the resolve, page and fetch
// pipeline against an in-process LFS forge.
//
// The forge is an httptest server, so the tests need neither network access
// nor Docker. Run with: go test ./integration/...
package integration
