package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jedib0t/go-pretty/v6/table"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/dreschagin/ddc-kiosk/internal/application/dto"
	"github.com/dreschagin/ddc-kiosk/internal/application/usecase"
	"github.com/dreschagin/ddc-kiosk/internal/domain/entity"
	"github.com/dreschagin/ddc-kiosk/internal/domain/service"
	"github.com/dreschagin/ddc-kiosk/internal/domain/valueobject"
	"github.com/dreschagin/ddc-kiosk/internal/interfaces/http/handler"
)

// connectionFlags: --protocol/--ip/--resolution
type connectionFlags struct {
	protocol   string
	ip         string
	resolution string
}

func (f *connectionFlags) bind(cmd *cobra.Command, ipRequired bool) {
	cmd.Flags().StringVar(&f.protocol, "protocol", "http", "device protocol (http or https)")
	cmd.Flags().StringVar(&f.ip, "ip", "", "device address")
	cmd.Flags().StringVar(&f.resolution, "resolution", "WVGA", "resolution class (WVGA or QVGA)")
	if ipRequired {
		_ = cmd.MarkFlagRequired("ip")
	}
}

func (f *connectionFlags) body() map[string]interface{} {
	return map[string]interface{}{
		"protocol":   f.protocol,
		"ip":         f.ip,
		"resolution": f.resolution,
	}
}

func (f *connectionFlags) config() (entity.ConnectionConfig, error) {
	scheme, err := valueobject.ParseTransportScheme(f.protocol)
	if err != nil {
		return entity.ConnectionConfig{}, err
	}
	rc, err := valueobject.ParseResolutionClass(f.resolution)
	if err != nil {
		return entity.ConnectionConfig{}, err
	}
	conn := entity.ConnectionConfig{Scheme: scheme, Host: strings.TrimSpace(f.ip), Resolution: rc}
	return conn, conn.Validate()
}

// parseSize разбирает "1024x600"
func parseSize(raw string) (float64, float64, error) {
	if raw == "" {
		return 0, 0, nil
	}
	w, h, ok := strings.Cut(strings.ToLower(raw), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q, expected WIDTHxHEIGHT", raw)
	}
	width, err := strconv.ParseFloat(strings.TrimSpace(w), 64)
	if err != nil || width < 0 {
		return 0, 0, fmt.Errorf("invalid width in %q", raw)
	}
	height, err := strconv.ParseFloat(strings.TrimSpace(h), 64)
	if err != nil || height < 0 {
		return 0, 0, fmt.Errorf("invalid height in %q", raw)
	}
	return width, height, nil
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	return t
}

func printJSON(out io.Writer, v interface{}) error {
	raw, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(raw))
	return err
}

func printSnapshot(cmd *cobra.Command, opts *globalOptions, snap usecase.ViewportSnapshot) error {
	if opts.json {
		return printJSON(cmd.OutOrStdout(), snap)
	}
	tr := snap.Transform
	t := newTable(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Zoom", "Scale", "Frame", "Translate X", "Crop X", "Mobile", "CSS"})
	t.AppendRow(table.Row{
		fmt.Sprintf("%d%%", tr.Percent),
		fmt.Sprintf("%.3f", tr.Scale),
		fmt.Sprintf("%.0fx%.0f", tr.FrameWidth, tr.FrameHeight),
		fmt.Sprintf("%.1f", tr.TranslateX),
		fmt.Sprintf("%.1f", tr.CropOffsetX),
		tr.Mobile,
		snap.CSS,
	})
	t.Render()
	if !snap.Applied {
		fmt.Fprintln(cmd.OutOrStdout(), "auto-fit not applied: container size is unknown")
	}
	return nil
}

type geometryFlags struct {
	resolution string
	container  string
	viewport   string
}

func (g *geometryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&g.resolution, "resolution", "WVGA", "resolution class (WVGA or QVGA)")
	cmd.Flags().StringVar(&g.container, "container", "", "container size, e.g. 1024x600")
	cmd.Flags().StringVar(&g.viewport, "viewport", "", "window size, e.g. 1280x800 (defaults to container)")
}

func (g *geometryFlags) state() (service.ViewportState, error) {
	rc, err := valueobject.ParseResolutionClass(g.resolution)
	if err != nil {
		return service.ViewportState{}, err
	}
	cw, ch, err := parseSize(g.container)
	if err != nil {
		return service.ViewportState{}, err
	}
	vw, vh := cw, ch
	if g.viewport != "" {
		if vw, vh, err = parseSize(g.viewport); err != nil {
			return service.ViewportState{}, err
		}
	}
	return service.NewViewportState(rc).Resize(cw, ch, vw, vh), nil
}

func newFitCmd(opts *globalOptions) *cobra.Command {
	g := &geometryFlags{}
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Compute the auto-fit transform for a container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := g.state()
			if err != nil {
				return err
			}
			snap := usecase.Fit(state.Resolution, state.ContainerWidth, state.ContainerHeight, state.ViewportWidth, state.ViewportHeight)
			return printSnapshot(cmd, opts, snap)
		},
	}
	g.bind(cmd)
	_ = cmd.MarkFlagRequired("container")
	return cmd
}

func newZoomCmd(opts *globalOptions) *cobra.Command {
	g := &geometryFlags{}
	var zoom float64
	cmd := &cobra.Command{
		Use:   "zoom",
		Short: "Compute the transform for an explicit zoom factor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := g.state()
			if err != nil {
				return err
			}
			state = state.WithZoom(zoom)
			t := state.Transform()
			return printSnapshot(cmd, opts, usecase.ViewportSnapshot{State: state, Transform: t, CSS: t.CSS(), Applied: true})
		},
	}
	g.bind(cmd)
	cmd.Flags().Float64Var(&zoom, "zoom", 1, "zoom factor, clamped to the allowed range")
	return cmd
}

func newURLCmd(opts *globalOptions) *cobra.Command {
	conn := &connectionFlags{}
	var template, shellScheme string
	cmd := &cobra.Command{
		Use:   "url",
		Short: "Build the device URL the kiosk iframe would load",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := conn.config()
			if err != nil {
				return err
			}
			builder, err := service.NewURLBuilder(template)
			if err != nil {
				return err
			}
			u, err := builder.Build(cfg, shellScheme)
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), u)
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendRows([]table.Row{
				{"Target", u.Target},
				{"Frame URL", u.URL},
				{"Proxied", u.Proxied},
			})
			t.Render()
			return nil
		},
	}
	conn.bind(cmd, true)
	cmd.Flags().StringVar(&template, "template", "", "device URL template (default: built-in DDC4000 path)")
	cmd.Flags().StringVar(&shellScheme, "shell-scheme", "http", "scheme the kiosk shell is served over")
	return cmd
}

func printStatus(cmd *cobra.Command, opts *globalOptions, status usecase.ConnectionStatus) error {
	if opts.json {
		return printJSON(cmd.OutOrStdout(), status)
	}
	t := newTable(cmd.OutOrStdout())
	t.AppendRows([]table.Row{
		{"State", status.State},
		{"Message", status.Message},
		{"Device", status.Connection.Host},
		{"URL", status.URL.URL},
	})
	if status.Probe != nil {
		t.AppendRow(table.Row{"Probe", fmt.Sprintf("%+v", *status.Probe)})
	}
	t.Render()
	return nil
}

func newConnectCmd(opts *globalOptions, client func() *apiClient) *cobra.Command {
	conn := &connectionFlags{}
	var skipProbe bool
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect the kiosk to a device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body := conn.body()
			body["skipProbe"] = skipProbe
			var status usecase.ConnectionStatus
			if err := client().do(cmd.Context(), http.MethodPost, "/api/v1/connection/connect", body, &status); err != nil {
				return err
			}
			return printStatus(cmd, opts, status)
		},
	}
	conn.bind(cmd, true)
	cmd.Flags().BoolVar(&skipProbe, "skip-probe", false, "do not probe the device before connecting")
	return cmd
}

func newViewportCmd(opts *globalOptions, client func() *apiClient) *cobra.Command {
	g := &geometryFlags{}
	var zoom float64
	var fullscreen bool
	cmd := &cobra.Command{
		Use:   "viewport SESSION ACTION",
		Short: "Apply a viewport action (zoom-in, zoom-out, reset, auto-fit, ...) to a shell session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cw, ch, err := parseSize(g.container)
			if err != nil {
				return err
			}
			vw, vh := cw, ch
			if g.viewport != "" {
				if vw, vh, err = parseSize(g.viewport); err != nil {
					return err
				}
			}
			body := map[string]interface{}{
				"resolution":      g.resolution,
				"containerWidth":  cw,
				"containerHeight": ch,
				"viewportWidth":   vw,
				"viewportHeight":  vh,
				"zoom":            zoom,
				"fullscreen":      fullscreen,
			}
			path := "/api/v1/viewport/sessions/" + url.PathEscape(args[0]) + "/" + url.PathEscape(args[1])
			var snap usecase.ViewportSnapshot
			if err := client().do(cmd.Context(), http.MethodPost, path, body, &snap); err != nil {
				return err
			}
			return printSnapshot(cmd, opts, snap)
		},
	}
	g.bind(cmd)
	cmd.Flags().Float64Var(&zoom, "zoom", 0, "zoom factor for the zoom action")
	cmd.Flags().BoolVar(&fullscreen, "fullscreen", false, "fullscreen flag for the fullscreen action")
	return cmd
}

func newPresetsCmd(opts *globalOptions, client func() *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Manage saved connection presets",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out usecase.PresetList
			if err := client().do(cmd.Context(), http.MethodGet, "/api/v1/presets", nil, &out); err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), out)
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Name", "Protocol", "Address", "Resolution", "Autoload"})
			for _, p := range out.Presets {
				t.AppendRow(table.Row{p.Name, p.Scheme, p.Host, p.Resolution, p.Name == out.Autoload})
			}
			t.Render()
			return nil
		},
	}

	conn := &connectionFlags{}
	var overwrite bool
	save := &cobra.Command{
		Use:   "save NAME",
		Short: "Save the connection as a named preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := conn.body()
			body["name"] = args[0]
			body["overwrite"] = overwrite
			var out struct {
				Replaced bool `json:"replaced"`
			}
			if err := client().do(cmd.Context(), http.MethodPost, "/api/v1/presets", body, &out); err != nil {
				var apiErr *apiError
				if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
					return fmt.Errorf("preset %q already exists, use --overwrite to replace it", args[0])
				}
				return err
			}
			if out.Replaced {
				fmt.Fprintf(cmd.OutOrStdout(), "Replaced preset %q\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved preset %q\n", args[0])
			}
			return nil
		},
	}
	conn.bind(save, true)
	save.Flags().BoolVar(&overwrite, "overwrite", false, "replace an existing preset with the same name")

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().do(cmd.Context(), http.MethodDelete, "/api/v1/presets/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted preset %q\n", args[0])
			return nil
		},
	}

	autoload := &cobra.Command{
		Use:   "autoload [NAME]",
		Short: "Set the preset connected on startup (no NAME clears it)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			if err := client().do(cmd.Context(), http.MethodPut, "/api/v1/presets/autoload", map[string]string{"name": name}, nil); err != nil {
				return err
			}
			if name == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Autoload cleared")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Autoload set to %q\n", name)
			}
			return nil
		},
	}

	cmd.AddCommand(list, save, del, autoload)
	return cmd
}

type captureResult struct {
	Screenshot *dto.ScreenshotDTO        `json:"screenshot"`
	Fallback   bool                      `json:"fallback"`
	Failures   []usecase.StrategyFailure `json:"failures"`
	Evicted    int                       `json:"evicted"`
}

func newCaptureCmd(opts *globalOptions, client func() *apiClient) *cobra.Command {
	conn := &connectionFlags{}
	var zoom float64
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Take a screenshot of the device UI and add it to the gallery",
		Long:  "Without --ip the kiosk captures its last connected device.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body := map[string]interface{}{"zoom": zoom}
			if conn.ip != "" {
				for k, v := range conn.body() {
					body[k] = v
				}
			}
			var res captureResult
			if err := client().do(cmd.Context(), http.MethodPost, "/api/v1/capture", body, &res); err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), res)
			}
			shot := res.Screenshot
			t := newTable(cmd.OutOrStdout())
			t.AppendRows([]table.Row{
				{"ID", shot.ID},
				{"Technique", shot.Technique},
				{"Description", shot.Description},
				{"Size", fmt.Sprintf("%dx%d", shot.Width, shot.Height)},
				{"Placeholder", res.Fallback},
			})
			if res.Evicted > 0 {
				t.AppendRow(table.Row{"Evicted", res.Evicted})
			}
			t.Render()
			for _, f := range res.Failures {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s failed: %s\n", f.Strategy, f.Error)
			}
			return nil
		},
	}
	conn.bind(cmd, false)
	cmd.Flags().Float64Var(&zoom, "zoom", 1, "zoom recorded in the screenshot description")
	return cmd
}

func newGalleryCmd(opts *globalOptions, client func() *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Browse and manage captured screenshots",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List screenshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out dto.GalleryDTO
			if err := client().do(cmd.Context(), http.MethodGet, "/api/v1/gallery", nil, &out); err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), out)
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"ID", "Captured", "Device", "Technique", "Description"})
			for _, item := range out.Items {
				t.AppendRow(table.Row{item.ID, item.Timestamp.Local().Format(time.DateTime), item.Device, item.Technique, item.Description})
			}
			t.AppendFooter(table.Row{"", "", "", "Total", fmt.Sprintf("%d / %d", out.Count, out.MaxItems)})
			t.Render()
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one screenshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().do(cmd.Context(), http.MethodDelete, "/api/v1/gallery/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted screenshot %s\n", args[0])
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every screenshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out struct {
				Removed int `json:"removed"`
			}
			if err := client().do(cmd.Context(), http.MethodDelete, "/api/v1/gallery", nil, &out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d screenshots\n", out.Removed)
			return nil
		},
	}

	var output string
	download := &cobra.Command{
		Use:   "download ID",
		Short: "Save a screenshot as PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := output
			if target == "" {
				target = "ddc4000-" + args[0] + ".png"
			}
			f, err := os.Create(target)
			if err != nil {
				return err
			}
			name, err := client().download(cmd.Context(), "/api/v1/gallery/"+url.PathEscape(args[0])+"/download", f)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				_ = os.Remove(target)
				return err
			}
			if output == "" && name != "" && name != target {
				if err := os.Rename(target, name); err == nil {
					target = name
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", target)
			return nil
		},
	}
	download.Flags().StringVarP(&output, "output", "o", "", "output file (default: server-provided name)")

	cmd.AddCommand(list, del, clearCmd, download)
	return cmd
}

func newQRCmd(opts *globalOptions) *cobra.Command {
	var ip, pngPath string
	var autoload bool
	var size int
	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Print a QR code that opens the kiosk shell on a phone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ip != "" {
				if err := entity.ValidateHost(ip); err != nil {
					return err
				}
			}
			link := handler.ShellLink(opts.server, ip, autoload)
			if pngPath != "" {
				if err := qrcode.WriteFile(link, qrcode.Medium, size, pngPath); err != nil {
					return fmt.Errorf("failed to write QR code: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\nSaved %s\n", link, pngPath)
				return nil
			}
			code, err := qrcode.New(link, qrcode.Medium)
			if err != nil {
				return fmt.Errorf("failed to build QR code: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), code.ToSmallString(false))
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}
	cmd.Flags().StringVar(&ip, "ip", "", "device address to prefill")
	cmd.Flags().BoolVar(&autoload, "autoload", false, "connect immediately when the link is opened")
	cmd.Flags().StringVar(&pngPath, "png", "", "write a PNG file instead of printing to the terminal")
	cmd.Flags().IntVar(&size, "size", 256, "PNG size in pixels")
	return cmd
}

func newStatusCmd(opts *globalOptions, client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show kiosk diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			var d usecase.Diagnostics
			if err := client().do(ctx, http.MethodGet, "/api/v1/diagnostics", nil, &d); err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), d)
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendRows([]table.Row{
				{"Version", d.Version},
				{"Kiosk", d.KioskID},
				{"Uptime", d.Uptime},
				{"WebSocket clients", d.WebSocketClient},
				{"Gallery items", d.GalleryItems},
				{"Known devices", strings.Join(d.KnownDevices, ", ")},
				{"Capture chain", strings.Join(d.CaptureChain, " → ")},
			})
			if d.HostError != "" {
				t.AppendRow(table.Row{"Host stats", d.HostError})
			}
			t.Render()
			return nil
		},
	}
}
