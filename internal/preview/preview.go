// Package preview classifies files by name and selects a rendering strategy:
// bounded text, scaled image, or delegation to the platform's default opener.
// Dispatching never mutates storage.
package preview

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/minidrive/minidrive/internal/drive"
	"github.com/minidrive/minidrive/internal/metrics"
)

// Strategy names a preview rendering strategy.
type Strategy string

const (
	StrategyText     Strategy = "text"
	StrategyImage    Strategy = "image"
	StrategyExternal Strategy = "external"
)

const (
	// DefaultMaxTextBytes bounds how much of a text file a preview reads.
	DefaultMaxTextBytes int64 = 64 * 1024
	// DefaultImageSize is the bounding box image previews are scaled into.
	DefaultImageSize = 250
)

var defaultTextExtensions = []string{".txt", ".md", ".log"}

// Result is a rendered preview. Exactly one of Text or Image is populated
// for the text and image strategies; the external strategy carries neither.
type Result struct {
	Strategy  Strategy
	Text      string // text strategy: bounded file contents
	Truncated bool   // text strategy: true if the file was longer than the bound
	Image     []byte // image strategy: scaled JPEG bytes
	Width     int    // image strategy: scaled dimensions
	Height    int
}

// Opener delegates a file to the platform's default application. It is an
// external collaborator used only by the fallback branch.
type Opener interface {
	OpenExternally(path string) error
}

// Options configures a Dispatcher. Zero values select the defaults.
type Options struct {
	TextExtensions []string
	MaxTextBytes   int64
	ImageSize      int
}

// Dispatcher classifies files and renders previews.
type Dispatcher struct {
	opener       Opener
	textExts     map[string]struct{}
	maxTextBytes int64
	imageSize    int
}

// NewDispatcher creates a dispatcher that falls back to opener for files it
// cannot render itself.
func NewDispatcher(opener Opener, opts Options) *Dispatcher {
	exts := opts.TextExtensions
	if len(exts) == 0 {
		exts = defaultTextExtensions
	}
	textExts := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		textExts[strings.ToLower(ext)] = struct{}{}
	}

	maxText := opts.MaxTextBytes
	if maxText <= 0 {
		maxText = DefaultMaxTextBytes
	}
	size := opts.ImageSize
	if size <= 0 {
		size = DefaultImageSize
	}
	return &Dispatcher{
		opener:       opener,
		textExts:     textExts,
		maxTextBytes: maxText,
		imageSize:    size,
	}
}

// Classify selects a strategy from the file name's extension alone.
func (d *Dispatcher) Classify(name string) Strategy {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := d.textExts[ext]; ok {
		return StrategyText
	}
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif":
		return StrategyImage
	}
	return StrategyExternal
}

// Open renders a preview for the file at path. Extension classification runs
// first; a file the extension would send to the external opener is content
// sniffed once, and a plain-text or supported image payload is rendered
// inline instead. Read failures surface as ErrPreviewUnavailable.
func (d *Dispatcher) Open(ctx context.Context, path string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("preview %s: %v: %w", path, err, drive.ErrPreviewUnavailable)
	}

	strategy := d.Classify(filepath.Base(path))
	if strategy == StrategyExternal {
		strategy = d.sniff(path)
	}

	var (
		result *Result
		err    error
	)
	switch strategy {
	case StrategyText:
		result, err = d.renderText(path)
	case StrategyImage:
		result, err = d.renderImage(path)
	default:
		result, err = d.delegate(path)
	}
	if err != nil {
		return nil, err
	}
	metrics.RecordPreview(string(result.Strategy))
	return result, nil
}

// sniff content-types a file whose extension did not classify it. Anything
// that is not recognizably text or a supported image stays external.
func (d *Dispatcher) sniff(path string) Strategy {
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return StrategyExternal
	}
	if mime.Is("text/plain") {
		return StrategyText
	}
	if mime.Is("image/jpeg") || mime.Is("image/png") || mime.Is("image/gif") {
		return StrategyImage
	}
	return StrategyExternal
}

func (d *Dispatcher) renderText(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("preview %s: %v: %w", path, err, drive.ErrPreviewUnavailable)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("preview %s: %v: %w", path, err, drive.ErrPreviewUnavailable)
	}

	// Bounded read: never load more than the configured window, even from
	// files that grow underneath us.
	data, err := io.ReadAll(io.LimitReader(f, d.maxTextBytes))
	if err != nil {
		return nil, fmt.Errorf("preview %s: %v: %w", path, err, drive.ErrPreviewUnavailable)
	}

	return &Result{
		Strategy:  StrategyText,
		Text:      string(data),
		Truncated: info.Size() > d.maxTextBytes,
	}, nil
}

func (d *Dispatcher) delegate(path string) (*Result, error) {
	if d.opener == nil {
		return nil, fmt.Errorf("preview %s: no external opener configured: %w", path, drive.ErrPreviewUnavailable)
	}
	if err := d.opener.OpenExternally(path); err != nil {
		return nil, fmt.Errorf("preview %s: external opener: %v: %w", path, err, drive.ErrPreviewUnavailable)
	}
	return &Result{Strategy: StrategyExternal}, nil
}
