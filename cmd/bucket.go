package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var yesBucket bool

// bucketCmd is the parent command for bucket operations.
var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Check, create and remove buckets",
}

var bucketExistsCmd = &cobra.Command{
	Use:   "exists <bucket>",
	Short: "Report whether a bucket exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(false)
		if err != nil {
			return err
		}
		ok, err := s.service.Client().BucketExists(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %t\n", args[0], ok)
		return nil
	},
}

var bucketCreateCmd = &cobra.Command{
	Use:   "create <bucket>",
	Short: "Create a bucket unless it already exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(false)
		if err != nil {
			return err
		}
		ok, err := s.service.Client().CreateBucket(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("failed to create bucket %s", args[0])
		}
		fmt.Printf("Bucket %s ready\n", args[0])
		return nil
	},
}

var bucketRemoveCmd = &cobra.Command{
	Use:   "rm <bucket>",
	Short: "Remove an empty bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirm(fmt.Sprintf("Remove bucket %s?", args[0]), yesBucket) {
			fmt.Println("Aborted")
			return nil
		}
		s, err := openSession(false)
		if err != nil {
			return err
		}
		ok, err := s.service.Client().RemoveBucket(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("failed to remove bucket %s (is it empty?)", args[0])
		}
		fmt.Printf("Bucket %s removed\n", args[0])
		return nil
	},
}

// folderCmd is the parent command for folder checks.
var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Inspect folders inside a bucket",
}

var folderExistsCmd = &cobra.Command{
	Use:   "exists <bucket> [prefix]",
	Short: "Report whether a folder exists under the prefix",
	Long: `Lists the bucket non-recursively under the prefix and reports whether any
entry is a folder. An omitted prefix lists the bucket root.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) == 2 {
			prefix = args[1]
		}
		s, err := openSession(false)
		if err != nil {
			return err
		}
		ok, err := s.service.Client().FolderExists(cmd.Context(), args[0], prefix)
		if err != nil {
			return err
		}
		fmt.Printf("%s/%s: %t\n", args[0], prefix, ok)
		return nil
	},
}

func init() {
	bucketRemoveCmd.Flags().BoolVar(&yesBucket, "yes", false, "Skip the confirmation prompt")

	bucketCmd.AddCommand(bucketExistsCmd, bucketCreateCmd, bucketRemoveCmd)
	folderCmd.AddCommand(folderExistsCmd)
	RootCmd.AddCommand(bucketCmd, folderCmd)
}
