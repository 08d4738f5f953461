package llm

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// imageSummary stands in for image data in debug payloads
type imageSummary struct {
	MediaType string `json:"mediaType"`
	ByteSize  int    `json:"byteSize"`
}

// redactRequest rewrites a request body for the debug sink.
// Every content part of the first message whose type is in imageTypes becomes an imageSummary,
// and every text part gets the redacted prompt. The body sent on the wire is not touched.
func redactRequest(body []byte, contentPath string, imageTypes map[string]bool, images []encodedImage, redactedPrompt string) json.RawMessage {
	out := append([]byte(nil), body...)
	imageIdx := 0

	for i, part := range gjson.GetBytes(body, contentPath).Array() {
		path := fmt.Sprintf("%s.%d", contentPath, i)
		var next []byte
		var err error
		switch partType := part.Get("type").String(); {
		case imageTypes[partType]:
			summary := imageSummary{}
			if imageIdx < len(images) {
				summary = imageSummary{MediaType: images[imageIdx].MediaType, ByteSize: images[imageIdx].Size}
			}
			imageIdx++
			next, err = sjson.SetBytes(out, path, summary)
		case partType == "text":
			next, err = sjson.SetBytes(out, path+".text", redactedPrompt)
		default:
			continue
		}
		if err != nil {
			break
		}
		out = next
	}

	return json.RawMessage(out)
}
