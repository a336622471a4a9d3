package client

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/ostren/ember/pkg/api/http/common"
	"github.com/ostren/ember/pkg/structs"
)

// Client is a thin HTTP client for an ember gateway.
type Client struct {
	url *url.URL
}

func New(address string) (*Client, error) {
	u, err := url.Parse(address)
	return &Client{url: u}, err
}

func (c *Client) CreateJob(cjr *structs.CreateJobRequest) (*structs.CreateJobResponse, error) {
	addr := c.addr(common.API_JOBS)
	var out structs.CreateJobResponse
	return &out, genericPost(addr, cjr, &out)
}

func (c *Client) Job(id string) (*structs.JobStatusResponse, error) {
	addr := c.addr(strings.Replace(common.API_JOB, "{id}", id, 1))
	var out structs.JobStatusResponse
	return &out, genericGet(addr, &out)
}

func (c *Client) Jobs(q *structs.Query) ([]*structs.Job, error) {
	addr := c.addr(common.API_JOBS)
	setQueryString(addr, q)
	var out []*structs.Job
	return out, genericGet(addr, &out)
}

func (c *Client) Cancel(id string) (int64, error) {
	addr := c.addr(strings.Replace(common.API_JOB_CANCEL, "{id}", id, 1))
	var out common.UpdateResponse
	return out.Updated, genericPatch(addr, nil, &out)
}

func (c *Client) Search(text string, limit int) ([]*structs.SearchResult, error) {
	addr := c.addr(common.API_SEARCH)
	values := addr.Query()
	values.Set("q", text)
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	addr.RawQuery = values.Encode()

	var out []*structs.SearchResult
	return out, genericGet(addr, &out)
}

func (c *Client) Result(id string) ([]byte, error) {
	addr := c.addr(strings.Replace(common.API_JOB_RESULT, "{id}", id, 1))
	return genericGetRaw(addr)
}

func (c *Client) addr(path string) *url.URL {
	return &url.URL{Scheme: c.url.Scheme, Host: c.url.Host, Path: path}
}
