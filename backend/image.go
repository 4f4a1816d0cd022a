package backend

import (
	"context"
	"fmt"

	"github.com/jonwraymond/toolproxy/invocation"
)

// Image processes raw image bytes.
//
// Arguments: image ([]byte or string).
type Image struct {
	base
}

// NewImage creates an Image backend.
func NewImage(cfg Config) *Image {
	return &Image{base{cfg: cfg.withDefaults()}}
}

// Invoke processes the image.
func (i *Image) Invoke(ctx context.Context, args invocation.Args) (invocation.Result, error) {
	raw, ok := arg(args, "image", 0)
	if !ok {
		return invocation.Result{}, invalid("image needs image data")
	}
	var size int
	switch v := raw.(type) {
	case []byte:
		size = len(v)
	case string:
		size = len(v)
	default:
		return invocation.Result{}, invalid("image data is %T, want bytes", raw)
	}
	if size == 0 {
		return invocation.Result{}, invalid("image data is empty")
	}

	if err := i.begin(ctx); err != nil {
		return invocation.Result{}, err
	}
	if i.fails() {
		return invocation.Result{}, ErrImageCorrupt
	}
	return invocation.Value(fmt.Sprintf("image processed (%d bytes)", size)), nil
}

var _ invocation.Invoker = (*Image)(nil)
