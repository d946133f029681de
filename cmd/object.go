package cmd

import (
	"fmt"
	"os"

	"oss-manager/core/oss"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	putName   string
	getOutput string
	getOffset int64
	getLength int64
	yesObject bool
)

// objectCmd is the parent command for object operations.
var objectCmd = &cobra.Command{
	Use:   "object",
	Short: "Upload, download, inspect and remove objects",
}

var objectPutCmd = &cobra.Command{
	Use:   "put <bucket> <file>",
	Short: "Upload a local file under a generated name",
	Long: `Uploads a local file as <id>.<ext>, with the content type taken from the
file extension. Use "-" as the file to stream standard input; --name then sets
the text appended after the generated id.

Examples:
  object put media ./photo.png
  cat report.pdf | object put media - --name report.pdf`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket, file := args[0], args[1]
		s, err := openSession(true)
		if err != nil {
			return err
		}

		if file == "-" {
			if putName == "" {
				return fmt.Errorf("--name is required when reading from stdin")
			}
			path, err := s.service.UploadStream(cmd.Context(), bucket, os.Stdin, putName)
			if err != nil {
				return err
			}
			if path == "" {
				return fmt.Errorf("upload to %s failed", bucket)
			}
			fmt.Println(path)
			return nil
		}

		path, found, err := s.service.UploadLocalFile(cmd.Context(), bucket, file)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%s is not a readable regular file", file)
		}
		if path == "" {
			return fmt.Errorf("upload of %s to %s failed", file, bucket)
		}

		if fi, err := os.Stat(file); err == nil {
			fmt.Printf("%s (%s)\n", path, humanize.Bytes(uint64(fi.Size())))
		} else {
			fmt.Println(path)
		}
		return nil
	},
}

var objectGetCmd = &cobra.Command{
	Use:   "get <bucket> <object>",
	Short: "Download an object or a byte range of it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket, object := args[0], args[1]
		s, err := openSession(false)
		if err != nil {
			return err
		}

		client := s.service.Client()
		var data []byte
		if cmd.Flags().Changed("offset") || cmd.Flags().Changed("length") {
			data, err = client.GetObjectRange(cmd.Context(), bucket, object, getOffset, getLength)
		} else {
			data, err = client.GetObject(cmd.Context(), bucket, object)
		}
		if err != nil {
			return err
		}
		if data == nil {
			return fmt.Errorf("object %s/%s not found or unreadable", bucket, object)
		}

		if getOutput == "" {
			_, err := os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(getOutput, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", getOutput, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s to %s\n", humanize.Bytes(uint64(len(data))), getOutput)
		return nil
	},
}

var objectRemoveCmd = &cobra.Command{
	Use:   "rm <bucket> <object>",
	Short: "Remove an object",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket, object := args[0], args[1]
		if !confirm(fmt.Sprintf("Remove %s/%s?", bucket, object), yesObject) {
			fmt.Println("Aborted")
			return nil
		}
		s, err := openSession(true)
		if err != nil {
			return err
		}
		removed, found, err := s.service.Remove(cmd.Context(), bucket, object)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("object %s/%s not found", bucket, object)
		}
		if !removed {
			return fmt.Errorf("failed to remove %s/%s", bucket, object)
		}
		fmt.Printf("Removed %s/%s\n", bucket, object)
		return nil
	},
}

var objectStatCmd = &cobra.Command{
	Use:   "stat <bucket> <object>",
	Short: "Show object metadata",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket, object := args[0], args[1]
		s, err := openSession(false)
		if err != nil {
			return err
		}
		info, err := s.service.Stat(cmd.Context(), bucket, object)
		if oss.KindOf(err) == oss.KindNotFound {
			return fmt.Errorf("object %s/%s not found", bucket, object)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Key:           %s\n", info.Key)
		fmt.Printf("Size:          %s (%d bytes)\n", humanize.Bytes(uint64(info.Size)), info.Size)
		fmt.Printf("Content-Type:  %s\n", info.ContentType)
		fmt.Printf("ETag:          %s\n", info.ETag)
		fmt.Printf("Last-Modified: %s (%s)\n", info.LastModified.UTC().Format("2006-01-02 15:04:05"), humanize.Time(info.LastModified))
		return nil
	},
}

var objectComposeCmd = &cobra.Command{
	Use:   "compose <bucket> <suffix> <source>...",
	Short: "Concatenate existing objects into a new one",
	Long: `Concatenates the source objects, in the given order, into a new <id>.<suffix>
object. Nothing is written unless every source exists.`,
	Args: cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket, suffix, sources := args[0], args[1], args[2:]
		s, err := openSession(true)
		if err != nil {
			return err
		}
		path, err := s.service.Compose(cmd.Context(), bucket, sources, suffix)
		if err != nil {
			return err
		}
		if path == "" {
			return fmt.Errorf("compose failed or a source object is missing")
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	objectPutCmd.Flags().StringVar(&putName, "name", "", "Name appended after the generated id when reading stdin")
	objectGetCmd.Flags().StringVarP(&getOutput, "output", "o", "", "Write the object to this file instead of stdout")
	objectGetCmd.Flags().Int64Var(&getOffset, "offset", 0, "Byte offset to start reading at")
	objectGetCmd.Flags().Int64Var(&getLength, "length", 0, "Number of bytes to read, required for a range")
	objectRemoveCmd.Flags().BoolVar(&yesObject, "yes", false, "Skip the confirmation prompt")

	objectCmd.AddCommand(objectPutCmd, objectGetCmd, objectRemoveCmd, objectStatCmd, objectComposeCmd)
	RootCmd.AddCommand(objectCmd)
}
