package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func fakeService() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /entries/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "e1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"not_found","message":"not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"e1","title":"Seed Swap","trustScore":0.64}`))
	})
	mux.HandleFunc("POST /ingest", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Events []json.RawMessage `json:"events"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		n := len(req.Events)
		_, _ = w.Write([]byte(`{"success":true,"stats":{"total":` + itoa(n) + `,"auto_approved":` + itoa(n) + `},"results":[]}`))
	})
	mux.HandleFunc("POST /ratings", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"entryId":"e1","trustScore":0.8}`))
	})
	return httptest.NewServer(mux)
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func run(srv *httptest.Server, args ...string) (string, error) {
	var out bytes.Buffer
	app := newApp(&out)
	app.ErrWriter = &bytes.Buffer{}
	err := app.Run(append([]string{"triagectl", "--url", srv.URL, "--retries", "0"}, args...))
	return out.String(), err
}

func TestTriagectl(t *testing.T) {
	convey.Convey("Given a running service", t, func() {
		srv := fakeService()
		defer srv.Close()

		convey.Convey("When showing an entry", func() {
			out, err := run(srv, "entry", "e1")

			convey.Convey("Then it is printed as JSON", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, `"title": "Seed Swap"`)
			})
		})

		convey.Convey("When the entry does not exist", func() {
			_, err := run(srv, "entry", "e2")

			convey.Convey("Then the service error is returned", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "not_found")
			})
		})

		convey.Convey("When submitting a file in two batches", func() {
			path := filepath.Join(t.TempDir(), "items.json")
			body := `{"events":[{"type":"event","title":"A"},{"type":"event","title":"B"},{"type":"news","title":"C"}]}`
			convey.So(os.WriteFile(path, []byte(body), 0o600), convey.ShouldBeNil)
			out, err := run(srv, "submit", "--batch-size", "2", path)

			convey.Convey("Then the reports are summed", func() {
				convey.So(err, convey.ShouldBeNil)
				var rep struct {
					Stats struct {
						Total        int `json:"total"`
						AutoApproved int `json:"auto_approved"`
					} `json:"stats"`
				}
				convey.So(json.Unmarshal([]byte(out), &rep), convey.ShouldBeNil)
				convey.So(rep.Stats.Total, convey.ShouldEqual, 3)
				convey.So(rep.Stats.AutoApproved, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When rating", func() {
			out, err := run(srv, "rate", "e1", "5")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, `"trustScore": 0.8`)

			_, err = run(srv, "rate", "e1", "five")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestReadItems(t *testing.T) {
	convey.Convey("Given submission files", t, func() {
		arr, err := readItems(strings.NewReader(`[{"title":"A"}]`))
		convey.So(err, convey.ShouldBeNil)
		convey.So(arr, convey.ShouldHaveLength, 1)

		wrapped, err := readItems(strings.NewReader(`{"events":[{"title":"A"},{"title":"B"}]}`))
		convey.So(err, convey.ShouldBeNil)
		convey.So(wrapped, convey.ShouldHaveLength, 2)

		_, err = readItems(strings.NewReader(`nope`))
		convey.So(err, convey.ShouldNotBeNil)
	})
}
