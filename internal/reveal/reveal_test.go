package reveal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"recast/internal/logging"
)

func TestOpenLaunchesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	var opened string
	o := New(logging.NewNop(), WithRunCommand(
		func(_ context.Context, binary, p string) error {
			if binary != "xdg-open" {
				t.Errorf("binary = %q", binary)
			}
			opened = p
			return nil
		}))

	if err := o.Open(context.Background(), path); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened != path {
		t.Fatalf("opened %q, want %q", opened, path)
	}
}

func TestOpenRejectsMissingFile(t *testing.T) {
	o := New(logging.NewNop(), WithRunCommand(
		func(context.Context, string, string) error {
			t.Fatal("launcher must not run for a missing file")
			return nil
		}))
	if err := o.Open(context.Background(), filepath.Join(t.TempDir(), "gone.mp4")); err == nil {
		t.Fatal("expected error")
	}
	if err := o.Open(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenPropagatesLaunchFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	o := New(logging.NewNop(), WithRunCommand(
		func(context.Context, string, string) error {
			return errors.New("no display")
		}))
	if err := o.Open(context.Background(), path); err == nil {
		t.Fatal("expected error")
	}
}
