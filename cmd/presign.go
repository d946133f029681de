package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var presignExpire int

// presignCmd is the parent command for presigned URLs.
var presignCmd = &cobra.Command{
	Use:   "presign",
	Short: "Generate presigned object URLs",
}

func presignRun(put bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		bucket, object := args[0], args[1]
		s, err := openSession(false)
		if err != nil {
			return err
		}

		client := s.service.Client()
		var u string
		if put {
			u, err = client.PresignedPutURL(cmd.Context(), bucket, object, presignExpire)
		} else {
			u, err = client.PresignedGetURL(cmd.Context(), bucket, object, presignExpire)
		}
		if err != nil {
			return err
		}
		if u == "" {
			return fmt.Errorf("failed to presign %s/%s", bucket, object)
		}
		fmt.Println(u)
		return nil
	}
}

var presignGetCmd = &cobra.Command{
	Use:   "get <bucket> <object>",
	Short: "URL granting GET on an object",
	Args:  cobra.ExactArgs(2),
	RunE:  presignRun(false),
}

var presignPutCmd = &cobra.Command{
	Use:   "put <bucket> <object>",
	Short: "URL granting PUT on an object",
	Args:  cobra.ExactArgs(2),
	RunE:  presignRun(true),
}

func init() {
	presignCmd.PersistentFlags().IntVar(&presignExpire, "expire", 15, "Expiry in minutes")

	presignCmd.AddCommand(presignGetCmd, presignPutCmd)
	RootCmd.AddCommand(presignCmd)
}
