package cmd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hangxie/luna-browser/client"
	"github.com/hangxie/luna-browser/table"
)

func Test_load(t *testing.T) {
	tests := []struct {
		name    string
		source  *fakeSource
		rows    int
		wantErr bool
	}{
		{"rows", &fakeSource{rows: map[client.Collection][]table.Row{client.CollectionArchive: areaRows(3)}}, 3, false},
		{"empty", &fakeSource{}, 0, false},
		{"error", &fakeSource{err: errors.New("connection refused")}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resultChan := make(chan loadResult, 1)
			go load(context.Background(), tt.source, client.CollectionArchive, resultChan)

			select {
			case result := <-resultChan:
				if tt.wantErr {
					require.Error(t, result.err)
					return
				}
				require.NoError(t, result.err)
				require.Len(t, result.rows, tt.rows)
			case <-time.After(5 * time.Second):
				t.Fatal("Timeout waiting for load result")
			}
			require.Equal(t, []client.Collection{client.CollectionArchive}, tt.source.calls)
		})
	}
}

func Test_load_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// unbuffered and never read, so only the cancelled context lets load return
	resultChan := make(chan loadResult)
	done := make(chan struct{})
	go func() {
		load(ctx, &fakeSource{}, client.CollectionImagery, resultChan)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("load should return once the context is cancelled")
	}
}
