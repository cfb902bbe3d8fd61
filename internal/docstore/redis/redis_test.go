package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/kraimerman/groupsharelinksQA/internal/docstore"
	"github.com/kraimerman/groupsharelinksQA/internal/docstore/storetest"
)

func TestCompliance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store {
		mr := miniredis.RunT(t)
		s, err := Open("redis://" + mr.Addr())
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
