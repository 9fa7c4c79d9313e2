// Package watch feeds image files that appear in a directory to a handler.
//
// A file is handed over once it has stopped changing for Options.Settle, so
// images that are still being copied in are not read half-written. Handlers
// run on a fixed pool of goroutines.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ironsheep/target-orientation/internal/imaging"
)

// DefaultSettle is how long a file must go without events before it is handled.
const DefaultSettle = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Scan hands over the supported files already in the directory at start.
	Scan bool

	// Settle is the quiet period a file needs before it is handled.
	Settle time.Duration

	// Workers is the number of handlers that may run at once.
	Workers int

	// Skip, when set, excludes file names that would otherwise be handled.
	Skip func(name string) bool
}

// NewOptions returns the default options: no initial scan, a 300ms settle
// time and a single worker.
func NewOptions() *Options {
	return &Options{
		Settle:  DefaultSettle,
		Workers: 1,
	}
}

// Watcher watches one directory.
type Watcher struct {
	dir  string
	opts *Options
	fs   *fsnotify.Watcher
}

// New starts watching dir. Events that arrive before Run is called are kept.
func New(dir string, opts *Options) (*Watcher, error) {
	if opts == nil {
		opts = NewOptions()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{dir: dir, opts: opts, fs: fs}, nil
}

// Run watches dir until ctx is done, calling handle with the path of every
// supported image that is created or rewritten in it.
func Run(ctx context.Context, dir string, opts *Options, handle func(path string)) error {
	w, err := New(dir, opts)
	if err != nil {
		return err
	}
	return w.Run(ctx, handle)
}

// Run delivers settled files to handle until ctx is done, then waits for the
// handlers in flight and closes the watcher. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context, handle func(path string)) error {
	defer w.fs.Close()

	files := make(chan string, 256)
	var wg sync.WaitGroup
	for i := 0; i < max(w.opts.Workers, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range files {
				handle(path)
			}
		}()
	}
	defer wg.Wait()
	defer close(files)

	if w.opts.Scan {
		existing, err := w.scan()
		if err != nil {
			return err
		}
		for _, path := range existing {
			select {
			case files <- path:
			case <-ctx.Done():
				return nil
			}
		}
	}

	settle := w.opts.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	ticker := time.NewTicker(max(settle/2, 10*time.Millisecond))
	defer ticker.Stop()

	log.Printf("Watching %s (settle %v)", w.dir, settle)

	pending := map[string]time.Time{}
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if w.accept(filepath.Base(ev.Name)) {
				pending[ev.Name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for path, seen := range pending {
				if now.Sub(seen) < settle {
					continue
				}
				delete(pending, path)
				select {
				case files <- path:
				case <-ctx.Done():
					return nil
				}
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}

// scan lists the supported files already in the directory, in name order.
func (w *Watcher) scan() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", w.dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.Type().IsRegular() && w.accept(e.Name()) {
			paths = append(paths, filepath.Join(w.dir, e.Name()))
		}
	}
	return paths, nil
}

func (w *Watcher) accept(name string) bool {
	if !imaging.IsSupported(name) {
		return false
	}
	return w.opts.Skip == nil || !w.opts.Skip(name)
}
