// lpauthctl es la CLI operativa del servicio de auth social. Habla con la
// superficie /v1/admin del servicio via X-Admin-API-Key.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	APIKey    string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string) (int, []byte, error) {
	u := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-Admin-API-Key", c.APIKey)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func main() {
	var (
		baseURL = envOr("LP_AUTH_ADMIN_URL", "http://localhost:8080")
		apiKey  = envOr("LP_AUTH_ADMIN_KEY", "")
		out     = envOr("LP_AUTH_OUT", "text")
	)

	root := &cobra.Command{
		Use:   "lpauthctl",
		Short: "CLI admin del servicio de social auth (solo /v1/admin)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				return fmt.Errorf("falta API key (flag --admin-api-key o env LP_AUTH_ADMIN_KEY)")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&baseURL, "admin-api-url", baseURL, "URL base del Admin API (env LP_AUTH_ADMIN_URL)")
	root.PersistentFlags().StringVar(&apiKey, "admin-api-key", apiKey, "API key del Admin API (env LP_AUTH_ADMIN_KEY)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	cl := &client{HTTP: &http.Client{Timeout: 30 * time.Second}}
	syncClient := func() {
		cl.BaseURL = baseURL
		cl.APIKey = apiKey
		cl.OutFormat = out
	}

	// audit list
	var (
		auditProvider  string
		auditEventType string
		auditFrom      string
		auditTo        string
		auditLimit     int
		auditOffset    int
	)
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Consulta del security audit trail",
	}
	auditListCmd := &cobra.Command{
		Use:   "list",
		Short: "Lista eventos del trail con filtros",
		RunE: func(cmd *cobra.Command, args []string) error {
			syncClient()
			q := url.Values{}
			if auditProvider != "" {
				q.Set("provider", auditProvider)
			}
			if auditEventType != "" {
				q.Set("eventType", auditEventType)
			}
			if auditFrom != "" {
				q.Set("from", auditFrom)
			}
			if auditTo != "" {
				q.Set("to", auditTo)
			}
			if auditLimit > 0 {
				q.Set("limit", fmt.Sprint(auditLimit))
			}
			if auditOffset > 0 {
				q.Set("offset", fmt.Sprint(auditOffset))
			}
			path := "/v1/admin/audit"
			if enc := q.Encode(); enc != "" {
				path += "?" + enc
			}
			status, body, err := cl.do("GET", path)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("audit list fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	auditListCmd.Flags().StringVar(&auditProvider, "provider", "", "Filtrar por provider (google|apple|instagram)")
	auditListCmd.Flags().StringVar(&auditEventType, "event-type", "", "Filtrar por tipo (AUTHENTICATION|ACCOUNT_CHANGE|ACCESS_CONTROL)")
	auditListCmd.Flags().StringVar(&auditFrom, "from", "", "Desde (RFC3339)")
	auditListCmd.Flags().StringVar(&auditTo, "to", "", "Hasta (RFC3339)")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 0, "Máximo de eventos (cap 200)")
	auditListCmd.Flags().IntVar(&auditOffset, "offset", 0, "Offset de paginación")
	auditCmd.AddCommand(auditListCmd)

	// tokens cleanup
	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "Ciclo de vida de tokens de providers",
	}
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Corre el sweep de tokens expirados y muestra el reporte",
		RunE: func(cmd *cobra.Command, args []string) error {
			syncClient()
			status, body, err := cl.do("POST", "/v1/admin/tokens/cleanup")
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("cleanup fallo: status=%d body=%s", status, string(body))
			}
			cl.print(status, body)
			return nil
		},
	}
	tokensCmd.AddCommand(cleanupCmd)

	root.AddCommand(auditCmd, tokensCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
