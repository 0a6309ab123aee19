package service

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/memory"
)

func callWith(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestDecodeArgs(t *testing.T) {
	Convey("Given the tool argument decoder", t, func() {
		Convey("Arguments bind onto the request struct by json tag", func() {
			var storeReq memory.StoreRequest
			err := decodeArgs(callWith(map[string]any{
				"content":      "remember this",
				"type":         "semantic",
				"content_type": "text",
				"agent_id":     "agent-1",
				"tags":         []any{"a", "b"},
				"confidence":   0.9,
			}), &storeReq)

			So(err, ShouldBeNil)
			So(storeReq.Content, ShouldEqual, "remember this")
			So(storeReq.Type, ShouldEqual, memory.Semantic)
			So(storeReq.AgentID, ShouldEqual, "agent-1")
			So(storeReq.Tags, ShouldResemble, []string{"a", "b"})
			So(storeReq.Confidence, ShouldAlmostEqual, 0.9, 1e-9)
		})

		Convey("Unknown fields are ignored", func() {
			var connReq memory.ConnectionRequest
			err := decodeArgs(callWith(map[string]any{
				"from_id":  "a",
				"to_id":    "b",
				"whatever": true,
			}), &connReq)

			So(err, ShouldBeNil)
			So(connReq.FromID, ShouldEqual, "a")
		})

		Convey("A type mismatch surfaces as an error", func() {
			var storeReq memory.StoreRequest
			err := decodeArgs(callWith(map[string]any{
				"content": 42,
			}), &storeReq)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestJSONResult(t *testing.T) {
	Convey("Given the result serializer", t, func() {
		Convey("Structs serialize into a text result", func() {
			result, err := jsonResult(memory.StoreResult{MemoryID: "m1", Success: true})
			So(err, ShouldBeNil)

			text := result.Content[0].(mcp.TextContent).Text
			So(text, ShouldContainSubstring, `"memory_id":"m1"`)
			So(text, ShouldContainSubstring, `"success":true`)
		})
	})
}
