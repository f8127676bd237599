// Package feed decodes and encodes GTFS-Realtime service-alert feeds and
// extracts their translatable content.
package feed

import (
	"fmt"
	"strings"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Format identifies one of the two supported wire encodings.
type Format string

const (
	FormatProtobuf Format = "pb"
	FormatJSON     Format = "json"
)

// FormatForURL picks the wire format from the object key extension.
// Keys ending in .json are JSON; everything else is protobuf.
func FormatForURL(url string) Format {
	if strings.HasSuffix(url, ".json") {
		return FormatJSON
	}
	return FormatProtobuf
}

// ContentType returns the MIME type to upload for a format.
func ContentType(f Format) string {
	if f == FormatJSON {
		return "application/json"
	}
	return "application/x-protobuf"
}

// Decode parses raw feed bytes in the given format.
func Decode(data []byte, f Format) (*gtfs.FeedMessage, error) {
	msg := &gtfs.FeedMessage{}

	switch f {
	case FormatJSON:
		opts := protojson.UnmarshalOptions{DiscardUnknown: true}
		if err := opts.Unmarshal(data, msg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON feed: %w", err)
		}
	case FormatProtobuf:
		if err := proto.Unmarshal(data, msg); err != nil {
			return nil, fmt.Errorf("failed to decode protobuf feed: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown feed format: %q", f)
	}

	return msg, nil
}

// Encode serializes a feed to the given wire format.
func Encode(msg *gtfs.FeedMessage, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		opts := protojson.MarshalOptions{UseProtoNames: true}
		data, err := opts.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode JSON feed: %w", err)
		}
		return data, nil
	case FormatProtobuf:
		data, err := proto.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to encode protobuf feed: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown feed format: %q", f)
	}
}
