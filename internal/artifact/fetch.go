package artifact

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var rest = resty.New().SetTimeout(10 * time.Second)

// fetch resolves a URI-like locator to artifact bytes. file:// and bare
// paths read from disk; http(s):// locators are fetched remotely.
func fetch(uri string) ([]byte, error) {
	switch {
	case strings.HasPrefix(uri, "file://"):
		u, err := url.Parse(uri)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(u.Path)
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		resp, err := rest.R().Get(uri)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("artifact server returned %s", resp.Status())
		}
		return resp.Body(), nil
	default:
		return os.ReadFile(uri)
	}
}
