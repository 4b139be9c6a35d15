package vast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/emaland/gpulaunch/internal/offer"
)

var ErrMissingContract = errors.New("vast create instance: response has no new_contract")

type createInstanceRequest struct {
	ClientID string `json:"client_id"`
	Image    string `json:"image"`
	Disk     int    `json:"disk"`
	Onstart  string `json:"onstart,omitempty"`
	RunType  string `json:"runtype,omitempty"`
}

type createInstanceResponse struct {
	Success     bool            `json:"success"`
	NewContract json.RawMessage `json:"new_contract"`
	Error       string          `json:"error"`
	Msg         string          `json:"msg"`
}

// Launch rents the machine behind offerID with the client's launch spec
// and returns the new contract ID.
func (c *Client) Launch(ctx context.Context, offerID string) (offer.Handle, error) {
	if offerID == "" {
		return "", errors.New("vast create instance: empty offer id")
	}

	req := createInstanceRequest{
		ClientID: "me",
		Image:    c.spec.Image,
		Disk:     c.spec.DiskGB,
		Onstart:  c.spec.Onstart,
	}
	if c.spec.SSH {
		req.RunType = "ssh"
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "vast create instance request")
	}

	endpoint := fmt.Sprintf("%s/asks/%s/", strings.TrimRight(c.apiURL, "/"), url.PathEscape(offerID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "vast create instance request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.WithField("offer", offerID).Debug("vast create instance")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", errors.Wrap(err, "vast create instance")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "vast create instance response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Errorf("vast create instance bad http status code: %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed createInstanceResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", errors.Wrap(err, "vast create instance response")
	}

	handle, err := contractID(parsed.NewContract)
	if err != nil {
		return "", err
	}
	return handle, nil
}

// contractID accepts new_contract as either a JSON number or a string.
func contractID(raw json.RawMessage) (offer.Handle, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return "", ErrMissingContract
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if str == "" {
			return "", ErrMissingContract
		}
		return offer.Handle(str), nil
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return "", errors.Wrapf(err, "vast create instance: new_contract %s", s)
	}
	return offer.Handle(num.String()), nil
}
