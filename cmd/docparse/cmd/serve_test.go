package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docparse-io/docparse/internal/ocr"
)

type stubEngine struct{}

func (stubEngine) Recognize([]byte) (string, error) { return "", nil }
func (stubEngine) Close() error                     { return nil }

func TestLazyOCRStarterAttachesAndDrains(t *testing.T) {
	pool, err := ocr.NewPool(1, func() (ocr.Engine, error) { return stubEngine{}, nil })
	require.NoError(t, err)

	var lazy lazyOCRStarter
	attached := make(chan *ocr.Pool, 1)
	lazy.Start(func() (*ocr.Pool, error) { return pool, nil }, func(p *ocr.Pool) { attached <- p })

	select {
	case got := <-attached:
		assert.Same(t, pool, got)
	case <-time.After(time.Second):
		t.Fatal("pool was never attached")
	}

	lazy.Drain()
	_, err = pool.Recognize(context.Background(), nil)
	assert.ErrorIs(t, err, ocr.ErrPoolClosed)
}

func TestLazyOCRStarterBuildFailure(t *testing.T) {
	var lazy lazyOCRStarter
	done := make(chan struct{})
	lazy.Start(func() (*ocr.Pool, error) {
		defer close(done)
		return nil, errors.New("no model")
	}, func(*ocr.Pool) {
		t.Error("attach called after a failed build")
	})
	<-done

	// Drain with no pool built is a no-op.
	lazy.Drain()
}
