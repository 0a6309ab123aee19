package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestOllamaTier(t *testing.T) {
	ctx := context.Background()

	Convey("Given a local embedding tier", t, func() {
		Convey("Embed posts to /api/embed with the content-type model", func(c C) {
			var gotModel string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.So(r.URL.Path, ShouldEqual, "/api/embed")

				var req ollamaEmbedRequest
				c.So(json.NewDecoder(r.Body).Decode(&req), ShouldBeNil)
				gotModel = req.Model

				json.NewEncoder(w).Encode(ollamaEmbedResponse{
					Embeddings: [][]float32{{0.1, 0.2, 0.3}},
				})
			}))
			defer srv.Close()

			tier := NewOllamaTier(srv.URL, map[ContentType]string{
				Text: "text-model",
				Code: "code-model",
			})

			vector, model, err := tier.Embed(ctx, "snippet", Code)
			So(err, ShouldBeNil)
			So(vector, ShouldResemble, []float32{0.1, 0.2, 0.3})
			So(model, ShouldEqual, "code-model")
			So(gotModel, ShouldEqual, "code-model")
		})

		Convey("An unknown content type falls back to the text model", func(c C) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req ollamaEmbedRequest
				json.NewDecoder(r.Body).Decode(&req)
				c.So(req.Model, ShouldEqual, "text-model")
				json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{1}}})
			}))
			defer srv.Close()

			tier := NewOllamaTier(srv.URL, map[ContentType]string{Text: "text-model"})

			_, model, err := tier.Embed(ctx, "whatever", ContentType("unknown"))
			So(err, ShouldBeNil)
			So(model, ShouldEqual, "text-model")
		})

		Convey("A server error surfaces as an error", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not found", http.StatusNotFound)
			}))
			defer srv.Close()

			tier := NewOllamaTier(srv.URL, map[ContentType]string{Text: "text-model"})

			_, _, err := tier.Embed(ctx, "whatever", Text)
			So(err, ShouldNotBeNil)
		})

		Convey("An empty embeddings response is an error", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(ollamaEmbedResponse{})
			}))
			defer srv.Close()

			tier := NewOllamaTier(srv.URL, map[ContentType]string{Text: "text-model"})

			_, _, err := tier.Embed(ctx, "whatever", Text)
			So(err, ShouldNotBeNil)
		})

		Convey("Health checks /api/tags", func(c C) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				c.So(r.URL.Path, ShouldEqual, "/api/tags")
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			tier := NewOllamaTier(srv.URL, nil)
			So(tier.Health(ctx), ShouldBeNil)
		})
	})
}
