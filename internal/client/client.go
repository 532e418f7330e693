// Package client talks to the catalog admin site.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/imroc/req/v3"
	"github.com/tidwall/gjson"
)

// Version is announced in the Catalog-Client-Version header.
const Version = "v0.1.0"

// ErrTooOld means the server requires a newer client.
var ErrTooOld = errors.New("client version too old")

type Client struct {
	ServerURL string
	Token     string
	http      *req.Client
}

func New(serverURL, token string) *Client {
	c := req.C().
		SetBaseURL(serverURL).
		SetTimeout(10*time.Second).
		SetUserAgent("catalogctl/"+Version).
		SetCommonHeader("Catalog-Client-Version", Version)
	if token != "" {
		c.SetCommonBearerAuthToken(token)
	}
	return &Client{ServerURL: serverURL, Token: token, http: c}
}

// Top fetches one of the top ten rankings. by only applies to genres.
func (c *Client) Top(ctx context.Context, kind, by string) (gjson.Result, error) {
	r := c.http.R().SetContext(ctx).SetPathParam("kind", kind)
	if by != "" {
		r.SetQueryParam("by", by)
	}
	return c.do(r, "/admin/rankings/{kind}")
}

// List fetches one page of a model's admin list.
func (c *Client) List(ctx context.Context, model string, page int) (gjson.Result, error) {
	r := c.http.R().
		SetContext(ctx).
		SetPathParam("model", model).
		SetQueryParam("page", strconv.Itoa(page))
	return c.do(r, "/admin/{model}")
}

// Models lists the registered admin models.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	res, err := c.do(c.http.R().SetContext(ctx), "/admin/")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, m := range res.Get("models").Array() {
		names = append(names, m.String())
	}
	return names, nil
}

func (c *Client) do(r *req.Request, path string) (gjson.Result, error) {
	resp, err := r.Get(path)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("request %s: %w", path, err)
	}
	body := gjson.ParseBytes(resp.Bytes())
	if resp.StatusCode == http.StatusUpgradeRequired {
		return gjson.Result{}, fmt.Errorf("%w: server wants %s", ErrTooOld, body.Get("min_version").String())
	}
	if resp.IsErrorState() {
		msg := body.Get("error").String()
		if msg == "" {
			msg = resp.Status
		}
		return gjson.Result{}, fmt.Errorf("%s: %d %s", path, resp.StatusCode, msg)
	}
	return body, nil
}
