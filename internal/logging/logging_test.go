// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"context"
	"testing"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cookbook/pkg/types"
)

func TestNewProvider(t *testing.T) {
	for _, format := range []string{"", "console", "json", "pretty"} {
		t.Run("format "+format, func(t *testing.T) {
			p, err := NewProvider(types.LoggingConfig{Level: "debug", Format: format})
			require.NoError(t, err)
			l := p.GetLogger("batch")
			require.NotNil(t, l)
			l.Debug("provider.initialised", "format", format)
		})
	}
}

func TestNewProvider_UnknownFormat(t *testing.T) {
	_, err := NewProvider(types.LoggingConfig{Format: "xml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestNilProviderDiscards(t *testing.T) {
	var p *Provider
	l := p.GetLogger("ocr")
	assert.Equal(t, Nop(), l)
	l.Error("ignored")
	assert.Equal(t, Nop(), l.WithContext(context.Background()))
}

func TestOrNop(t *testing.T) {
	assert.Equal(t, Nop(), OrNop(nil))

	p, err := NewProvider(types.LoggingConfig{})
	require.NoError(t, err)
	l := p.GetLogger("")
	assert.Same(t, l, OrNop(l))
}

func TestNormalizeLevel(t *testing.T) {
	tests := map[string]string{
		"":        "",
		"TRACE":   glog.Trace,
		" debug ": glog.Debug,
		"info":    glog.Info,
		"warning": glog.Warn,
		"error":   glog.Error,
		"fatal":   glog.Fatal,
		"loud":    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeLevel(in), "level %q", in)
	}
}
