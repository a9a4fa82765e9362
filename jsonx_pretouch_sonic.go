//go:build !nojsonsimd

package main

import (
	"reflect"

	"github.com/bytedance/sonic"
)

func init() {
	// Pretouch the coordinator wire types so the first template fetch and
	// the first submission don't pay sonic's codegen cost.
	_ = sonic.Pretouch(reflect.TypeOf(Template{}))
	_ = sonic.Pretouch(reflect.TypeOf(workRequest{}))
	_ = sonic.Pretouch(reflect.TypeOf(workResponse{}))
}
