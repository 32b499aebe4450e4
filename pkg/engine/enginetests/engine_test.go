package enginetests

import (
	"testing"

	"github.com/justinsb/mxnet-go/pkg/engine/fallback"
)

func TestFallbackEngine(t *testing.T) {
	e := fallback.New()
	Run(t, e)

	stats := e.Stats()
	if stats.LiveArrays() != 0 {
		t.Errorf("expected no live arrays, got %d", stats.LiveArrays())
	}
	if stats.LiveSymbols() != 0 {
		t.Errorf("expected no live symbols, got %d", stats.LiveSymbols())
	}
}
