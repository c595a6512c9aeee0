package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLotIndexClaim(t *testing.T) {
	ix := newLotIndex()
	ix.markStored(lotKey("1", "VC-2024-001"))

	// A stored lot is never skipped outright: the filter hit only demands
	// verification against the table.
	assert.Equal(t, lotVerify, ix.claim(lotKey("1", "VC-2024-001")))

	// A novel lot is claimed for insertion exactly once.
	assert.Equal(t, lotInsert, ix.claim(lotKey("1", "VC-2025-009")))
	assert.Equal(t, lotSkip, ix.claim(lotKey("1", "VC-2025-009")))

	// Re-claiming a verified lot is also a skip.
	assert.Equal(t, lotSkip, ix.claim(lotKey("1", "VC-2024-001")))
}

func TestLotIndexClaimConcurrent(t *testing.T) {
	// The same new lot appearing in many manifests at once must yield
	// exactly one insert decision, however the workers interleave.
	ix := newLotIndex()
	key := lotKey("4", "GC-2025-100")

	const workers = 32
	decisions := make([]lotDecision, workers)

	var start, done sync.WaitGroup
	start.Add(1)
	for i := range workers {
		done.Add(1)
		go func() {
			defer done.Done()
			start.Wait()
			decisions[i] = ix.claim(key)
		}()
	}
	start.Done()
	done.Wait()

	inserts := 0
	for _, d := range decisions {
		switch d {
		case lotInsert:
			inserts++
		case lotSkip:
		default:
			t.Fatalf("unexpected decision %v", d)
		}
	}
	assert.Equal(t, 1, inserts)
}

func TestParseManifestLine(t *testing.T) {
	products := map[string]productInfo{
		"1": {name: "Vitamin C Serum", brand: "The Ordinary"},
	}

	t.Run("valid", func(t *testing.T) {
		b, err := parseManifestLine("1, VC-2025-004, 45.00, 12, 2026-03-15", products)
		require.NoError(t, err)

		assert.NotEmpty(t, b.ID)
		assert.Equal(t, "1", b.ProductID)
		assert.Equal(t, "Vitamin C Serum", b.ProductName)
		assert.Equal(t, "The Ordinary", b.Brand)
		assert.Equal(t, "VC-2025-004", b.BatchNumber)
		assert.True(t, b.Price.Equal(decimal.RequireFromString("45.00")))
		assert.Equal(t, 12, b.StockRemaining)
		assert.Equal(t, "2026-03-15", b.ExpiryDate.Format(dateLayout))
	})

	cases := []struct {
		name string
		line string
	}{
		{"wrong field count", "1,VC-2025-004,45.00,12"},
		{"unknown product", "99,VC-2025-004,45.00,12,2026-03-15"},
		{"empty batch number", "1, ,45.00,12,2026-03-15"},
		{"bad price", "1,VC-2025-004,cheap,12,2026-03-15"},
		{"bad stock", "1,VC-2025-004,45.00,dozen,2026-03-15"},
		{"negative stock", "1,VC-2025-004,45.00,-1,2026-03-15"},
		{"bad expiry", "1,VC-2025-004,45.00,12,15-03-2026"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseManifestLine(tc.line, products)
			assert.Error(t, err)
		})
	}
}

func TestStreamGzFile(t *testing.T) {
	path := writeManifest(t, "line one\nline two\nline three\n")

	var lines []string
	err := streamGzFile(context.Background(), path, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"line one", "line two", "line three"}, lines)
}

func TestStreamGzFilePropagatesError(t *testing.T) {
	path := writeManifest(t, "ok\nboom\nnever reached\n")

	var seen int
	err := streamGzFile(context.Background(), path, func(line string) error {
		seen++
		if line == "boom" {
			return errors.New("bad line")
		}
		return nil
	})
	assert.ErrorContains(t, err, "bad line")
	assert.Equal(t, 2, seen)
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), fmt.Sprintf("%s.csv.gz", t.Name()))
	f, err := os.Create(path)
	require.NoError(t, err)

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	return path
}
