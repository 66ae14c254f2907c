package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/t2s-studio/t2s/internal/config"
	"github.com/t2s-studio/t2s/internal/export"
	"github.com/t2s-studio/t2s/internal/synth"
)

var (
	exportFormat string
	exportDir    string

	exportCmd = &cobra.Command{
		Use:   "export [TEXT|FILE|-]",
		Short: "Synthesize text and write it to an audio file",
		Long: paragraph(fmt.Sprintf("\n%s text without opening the editor. The file is named t2s_audio_<millis>.<ext>.",
			keyword("Export"))),
		Example: paragraph("t2s export \"Hello there\"\nt2s export notes.txt --out ~/audio --voice Puck\necho hi | t2s export -"),
		Args:    cobra.ArbitraryArgs,
		RunE:    runExport,
	}
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "wav or mp3 (default from config)")
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", "", "output directory (default from config)")
}

func runExport(cmd *cobra.Command, args []string) error {
	text, err := readInput(args, os.Stdin)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("nothing to export: no text given")
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if exportDir != "" {
		cfg.Export.Dir = exportDir
	}
	if exportFormat == "" {
		exportFormat = cfg.Export.Format
	}
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	if _, err := synth.LookupVoice(cfg.VoiceName); err != nil {
		return err
	}

	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()
	return exportText(ctx, svc, text, cfg.VoiceName, format, cmd.OutOrStdout())
}

func exportText(ctx context.Context, svc *services, text, voice string, format export.Format, out io.Writer) error {
	buf, _, err := svc.gate.Ensure(ctx, text, voice)
	if err != nil {
		return err
	}
	res, err := svc.exporter.Export(buf, format)
	if err != nil {
		return err
	}
	if res.Degraded {
		fmt.Fprintf(out, "No %s encoder available, wrote WAV data.\n", res.Format) //nolint:errcheck
	}
	fmt.Fprintf(out, "%s (%s, %s)\n", res.Path, humanize.Bytes(uint64(res.Bytes)), //nolint:errcheck,gosec
		buf.Length().Round(100*time.Millisecond))
	return nil
}
