package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ostren/ember/internal/utils"
	ie "github.com/ostren/ember/pkg/errors"
	"github.com/ostren/ember/pkg/structs"
)

var (
	errmap map[int][]error = map[int][]error{
		http.StatusBadRequest: []error{
			ie.ErrInvalidRequest,
			ie.ErrNoOp,
			ie.ErrMaxExceeded,
			ie.ErrETagMismatch,
			ie.ErrInvalidState,
			ie.ErrNotSupported,
		},
		http.StatusNotFound: []error{
			ie.ErrNotFound,
		},
		http.StatusTooManyRequests: []error{
			ie.ErrOverloaded,
		},
		http.StatusServiceUnavailable: []error{
			ie.ErrBrokerUnavailable,
			ie.ErrSearchUnavailable,
		},
	}
)

// mapError returns the http status code for a given error from ember, or
// http.StatusInternalServerError if the error is not recognised.
func mapError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for code, errs := range errmap {
		for _, e := range errs {
			if errors.Is(err, e) {
				return code
			}
		}
	}
	return http.StatusInternalServerError
}

func unmarshalQuery(w http.ResponseWriter, r *http.Request, out *structs.Query) error {
	q := r.URL.Query()

	if q.Has("limit") {
		limit, err := strconv.Atoi(q.Get("limit"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return fmt.Errorf("bad limit: %v", err)
		}
		out.Limit = limit
	}

	if q.Has("offset") {
		offset, err := strconv.Atoi(q.Get("offset"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return fmt.Errorf("bad offset: %v", err)
		}
		out.Offset = offset
	}

	if q.Has("job_ids") {
		out.JobIDs = q["job_ids"]
		for _, id := range out.JobIDs {
			if !utils.IsValidID(id) {
				http.Error(w, "bad job id", http.StatusBadRequest)
				return fmt.Errorf("bad job id: %v", id)
			}
		}
	}
	if q.Has("ops") {
		out.Ops = q["ops"]
	}
	if q.Has("statuses") {
		out.Statuses = []structs.Status{}
		for _, s := range q["statuses"] {
			st := structs.ToStatus(s)
			if st == "" {
				http.Error(w, "bad status", http.StatusBadRequest)
				return fmt.Errorf("bad status: %v", s)
			}
			out.Statuses = append(out.Statuses, st)
		}
	}

	out.Sanitize()
	return nil
}

func unmarshalSearch(w http.ResponseWriter, r *http.Request) (*structs.SearchRequest, error) {
	q := r.URL.Query()

	req := &structs.SearchRequest{Text: q.Get("q")}
	if q.Has("limit") {
		limit, err := strconv.Atoi(q.Get("limit"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return nil, fmt.Errorf("bad limit: %v", err)
		}
		req.Limit = limit
	}
	return req, nil
}

// unmarshalJson reads the body of a request and attempts to unmarshal it into the given object.
// This function write an error to the writer if an error occurs, and returns the error.
func unmarshalJson(w http.ResponseWriter, r *http.Request, obj interface{}) error {
	if r.Body == nil {
		http.Error(w, "No body", http.StatusBadRequest)
		return fmt.Errorf("no body")
	}
	d := json.NewDecoder(r.Body)
	d.DisallowUnknownFields() // catch unwanted fields

	err := d.Decode(obj)
	if err != nil {
		// bad JSON or unrecognized json field
		http.Error(w, err.Error(), http.StatusBadRequest)
		return fmt.Errorf("bad json: %v", err)
	}

	return nil
}
