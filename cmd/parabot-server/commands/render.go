package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MRamiBalles/ParaBot/internal/domain/face"
	"github.com/MRamiBalles/ParaBot/internal/render"
)

func renderCmd() *cobra.Command {
	var (
		emotion  string
		blinking bool
		out      string
		width    float64
		height   float64
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write a single SVG frame of the face at rest",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := face.ParseEmotion(emotion)
			if err != nil {
				return err
			}

			opts := render.DefaultOptions()
			opts.Width, opts.Height = cfg.FaceWidth, cfg.FaceHeight
			if cmd.Flags().Changed("width") {
				opts.Width = width
			}
			if cmd.Flags().Changed("height") {
				opts.Height = height
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			frame := render.RestFrame(face.FaceState{Emotion: e, IsBlinking: blinking})
			if err := render.RenderSVG(w, frame, opts); err != nil {
				return err
			}
			if out != "" {
				appLogger.Info("face rendered", "emotion", e, "blinking", blinking, "out", out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&emotion, "emotion", string(face.DefaultEmotion), "emotion to draw")
	cmd.Flags().BoolVar(&blinking, "blink", false, "draw the eyes shut")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().Float64Var(&width, "width", 0, "image width")
	cmd.Flags().Float64Var(&height, "height", 0, "image height")
	return cmd
}
