package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keyo-app/pulse-toast/internal/config"
	"github.com/keyo-app/pulse-toast/internal/toast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSendClient struct {
	spooled  []toast.Request
	posted   []toast.Request
	addr     string
	spoolErr error
	postID   string
	postErr  error
}

func (f *fakeSendClient) Spool(req toast.Request) error {
	f.spooled = append(f.spooled, req)
	return f.spoolErr
}

func (f *fakeSendClient) Post(ctx context.Context, addr string, req toast.Request) (string, error) {
	f.posted = append(f.posted, req)
	f.addr = addr
	return f.postID, f.postErr
}

func TestNewSendCmdPanicsWhenClientIsNil(t *testing.T) {
	require.PanicsWithValue(t, "NewSendCmd: client dependency cannot be nil", func() {
		NewSendCmd(nil)
	})
}

func TestSendBuildsRequest(t *testing.T) {
	client := &fakeSendClient{}

	_, err := execute(t, NewSendCmd(client), "warning", "Disk almost full",
		"--title", "Storage", "--duration", "2s", "--position", "top-left", "--pinned",
		"--action", "Clean", "--action-id", "clean", "--cancel", "Later", "--cancel-id", "snooze")

	require.NoError(t, err)
	require.Len(t, client.spooled, 1)
	req := client.spooled[0]
	assert.Equal(t, "warning", req.Kind)
	assert.Equal(t, "Disk almost full", req.Description)
	assert.Equal(t, "Storage", req.Title)
	assert.Equal(t, "top-left", req.Position)
	require.NotNil(t, req.DurationMs)
	assert.Equal(t, int64(2000), *req.DurationMs)
	require.NotNil(t, req.Dismissible)
	assert.False(t, *req.Dismissible)
	assert.Equal(t, &toast.RequestButton{Label: "Clean", ID: "clean"}, req.Action)
	assert.Equal(t, &toast.RequestButton{Label: "Later", ID: "snooze"}, req.Cancel)
}

func TestSendDefaultsLeaveFieldsUnset(t *testing.T) {
	client := &fakeSendClient{}

	_, err := execute(t, NewSendCmd(client), "hello")

	require.NoError(t, err)
	req := client.spooled[0]
	assert.Empty(t, req.Kind)
	assert.Nil(t, req.DurationMs)
	assert.Nil(t, req.Dismissible)
	assert.Nil(t, req.Action)
	assert.Nil(t, req.Cancel)
}

func TestSendZeroDurationIsExplicit(t *testing.T) {
	client := &fakeSendClient{}

	_, err := execute(t, NewSendCmd(client), "stay", "--duration", "0")

	require.NoError(t, err)
	require.NotNil(t, client.spooled[0].DurationMs)
	assert.Zero(t, *client.spooled[0].DurationMs)
}

func TestSendRejectsInvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad kind", []string{"shout", "hi"}},
		{"bad position", []string{"hi", "--position", "middle"}},
		{"blank message", []string{"  "}},
		{"no args", []string{}},
		{"too many args", []string{"info", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeSendClient{}
			_, err := execute(t, NewSendCmd(client), tt.args...)
			require.Error(t, err)
			require.Empty(t, client.spooled)
		})
	}
}

func TestSendSpoolError(t *testing.T) {
	client := &fakeSendClient{spoolErr: errors.New("disk full")}

	_, err := execute(t, NewSendCmd(client), "hi")

	require.ErrorContains(t, err, "send: disk full")
}

func TestSendViaFeed(t *testing.T) {
	setupConfig(t, "LISTEN_ADDR", "127.0.0.1:7001")
	client := &fakeSendClient{postID: "abc-123"}

	out, err := execute(t, NewSendCmd(client), "success", "done", "--feed")

	require.NoError(t, err)
	require.Equal(t, "abc-123\n", out)
	require.Equal(t, "127.0.0.1:7001", client.addr)
	require.Empty(t, client.spooled)
	require.Len(t, client.posted, 1)

	_, err = execute(t, NewSendCmd(client), "done", "--feed", "--addr", "localhost:1")
	require.NoError(t, err)
	require.Equal(t, "localhost:1", client.addr)
}

func TestDefaultSendClientSpool(t *testing.T) {
	setupConfig(t)
	path := filepath.Join(t.TempDir(), "spool.jsonl")
	config.Set("spool_path", path)

	require.NoError(t, defaultSender.Spool(toast.Request{Kind: "info", Description: "queued"}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var got toast.Request
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &got))
	require.Equal(t, "queued", got.Description)
}

func TestDefaultSendClientPost(t *testing.T) {
	var received toast.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/toasts", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		if received.Kind == "shout" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid toast request: invalid toast kind"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"t-1"}`))
	}))
	defer ts.Close()
	client := defaultSendClient{http: ts.Client()}

	id, err := client.Post(context.Background(), strings.TrimPrefix(ts.URL, "http://"), toast.Request{Description: "hi"})
	require.NoError(t, err)
	require.Equal(t, "t-1", id)
	require.Equal(t, "hi", received.Description)

	_, err = client.Post(context.Background(), ts.URL+"/", toast.Request{Kind: "shout", Description: "hi"})
	require.ErrorContains(t, err, "invalid toast kind")
}
