// Package lib holds libraries that do not fit strictly into another layer.
//
// token issues and verifies the signed bearer tokens that gate the
// employee routes.
package lib
