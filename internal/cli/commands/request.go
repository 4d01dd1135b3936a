package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

// NewRequestCmd creates the request command
func NewRequestCmd(rt *Runtime) *cobra.Command {
	var data string

	cmd := &cobra.Command{
		Use:   "request <method> <path>",
		Short: "Send an authenticated request to the selected server",
		Long: `Send an authenticated request to the selected server.

The session is refreshed and the request replayed once when the server
answers 401.

Examples:
  $ authsession request GET posts/
  $ authsession request POST posts/ --data '{"title":"hello"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd.Context(), rt, args[0], args[1], data)
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")

	return cmd
}

func runRequest(ctx context.Context, rt *Runtime, method, path, data string) error {
	method = strings.ToUpper(method)
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodHead, http.MethodOptions:
	default:
		return fmt.Errorf("unsupported method %q", method)
	}

	var body []byte
	if data != "" {
		if !json.Valid([]byte(data)) {
			return fmt.Errorf("--data must be valid JSON")
		}
		body = []byte(data)
	}

	s, _, err := rt.openStartedSession(ctx)
	if err != nil {
		return err
	}

	resp, err := s.Request(ctx, method, path, body)
	if err != nil {
		return s.finish(err)
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, resp.Body, "", "  ") == nil {
		rt.printf("%s\n", pretty.String())
	} else if len(resp.Body) > 0 {
		rt.printf("%s\n", resp.Body)
	}

	if !resp.OK() {
		return s.finish(resp.Err())
	}
	return s.finish(nil)
}
