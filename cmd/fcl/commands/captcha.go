package commands

import (
	"fmt"

	"carrierlookup/internal/captcha"

	"github.com/spf13/cobra"
)

func newCaptchaCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "captcha",
		Short: "Start a session, download its captcha image and print where it was saved.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := e.newClient()
			if err != nil {
				return fmt.Errorf("create client: %w", err)
			}
			err = client.Connect(ctx)
			if err != nil {
				return err
			}
			challenge, err := client.Captcha(ctx)
			if err != nil {
				return err
			}

			path, err := captcha.Save(e.cfg.CaptchaDir, challenge)
			if err != nil {
				return fmt.Errorf("save captcha: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
