// package http contains the request and response types shared by every
// protocol provider. the package name is meant to be same with the top
// level package name so that IDEs and code editors could pick them up
//
// "semantics" types from the standard library ([net/http.Header] etc.)
// are reused as-is, only the wire handling is owned by this module.
package http

import (
	"net/http"
)

type Header = http.Header

var NoBody = http.NoBody
