//go:build mxnet

package mxnet

import (
	"testing"

	"github.com/justinsb/mxnet-go/pkg/engine/enginetests"
)

func TestEngine(t *testing.T) {
	e, err := New()
	if err != nil {
		t.Fatalf("failed to load libmxnet: %v", err)
	}
	enginetests.Run(t, e)
}
