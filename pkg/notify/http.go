package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"github.com/slotwatch/slotwatch/internal/utils"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

// HTTP requests the URL instead of showing it, for machines without a
// desktop session. The endpoint is expected to relay the alert.
type HTTP struct {
	Client *retryablehttp.Client
	Log    logrus.FieldLogger
}

// NewHTTP returns an HTTP notifier retrying up to retries times.
func NewHTTP(retries int, l logrus.FieldLogger) *HTTP {
	client := retryablehttp.NewClient()
	client.Logger = log.New(io.Discard, "", 0)
	client.RetryMax = retries
	return &HTTP{Client: client, Log: utils.OrDiscard(l)}
}

func (h *HTTP) Open(ctx context.Context, url string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cache-Control", "no-transform")
	req.Header.Set("Accept-Language", "en")

	resp, err := h.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s returned %s", url, resp.Status)
	}

	title, _ := pageTitle(resp.Body)
	utils.OrDiscard(h.Log).WithFields(logrus.Fields{
		"status": resp.StatusCode,
		"title":  title,
	}).Debugf("Opened %s", url)
	return nil
}

// pageTitle returns the text of the first <title> element.
func pageTitle(r io.Reader) (string, bool) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", false
	}
	return findTitle(doc)
}

func findTitle(n *html.Node) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data), true
		}
		return "", true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title, ok := findTitle(c); ok {
			return title, ok
		}
	}
	return "", false
}
