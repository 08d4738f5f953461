package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/garagescan/internal/types"
)

// encodedImage is an image ready for a JSON request body
type encodedImage struct {
	MediaType string
	Base64    string
	Size      int
}

// dataURL renders the image as a data: URL
func (e encodedImage) dataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", e.MediaType, e.Base64)
}

// encodeImages base64-encodes every image concurrently, keeping input order
func encodeImages(ctx context.Context, images []types.Image) ([]encodedImage, error) {
	out := make([]encodedImage, len(images))
	g, gctx := errgroup.WithContext(ctx)

	for i, img := range images {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if img.Size() == 0 {
				return fmt.Errorf("image %d is empty", i+1)
			}
			out[i] = encodedImage{
				MediaType: img.MIME(),
				Base64:    base64.StdEncoding.EncodeToString(img.Data),
				Size:      img.Size(),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("encode images: %w", err)
	}
	return out, nil
}
