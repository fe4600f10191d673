package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cms-go/internal/app"
	"cms-go/internal/cms"
	"cms-go/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var verr *cms.ValidationError
		if errors.As(err, &verr) {
			for _, reason := range verr.Reasons {
				fmt.Fprintln(os.Stderr, reason)
			}
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// newApp reads the config and creates a CMSApp. The caller must defer app.Close().
func newApp(operation string) (*app.CMSApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewCMSApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// newSignedInApp creates a CMSApp and signs in the user named by --user.
func newSignedInApp(cmd *cobra.Command, operation string) (*app.CMSApp, error) {
	username, _ := cmd.Flags().GetString("user")
	if username == "" {
		return nil, fmt.Errorf("--user is required for %s", cmd.CommandPath())
	}
	password, err := readSecret(EnvPassword, "Password: ")
	if err != nil {
		return nil, err
	}

	a, err := newApp(operation)
	if err != nil {
		return nil, err
	}
	if err := a.SignIn(username, password); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:           "cms",
	Short:         "Versioned document store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		instanceID := uuid.New().String()
		cfg := config.NewConfig(instanceID, defaults.BaseDir)

		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Instance ID: %s\n", instanceID)
		fmt.Printf("Base Dir:    %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Instance ID: %s\n", cfg.InstanceID)
		fmt.Printf("Documents:   %s\n", cfg.Documents.Dir)
		switch cfg.History.Type {
		case "s3":
			fmt.Printf("History:     s3://%s/%s (%s)\n", cfg.History.S3Bucket, cfg.History.S3Prefix, cfg.History.S3Region)
		case "memory":
			fmt.Printf("History:     memory\n")
		default:
			fmt.Printf("History:     %s\n", cfg.History.Dir)
		}
		fmt.Printf("Credentials: %s\n", cfg.Credentials.Type)
		fmt.Printf("Encryption:  %s\n", cfg.Encryption.Type)
		fmt.Printf("Log Dir:     %s (%s)\n", cfg.LogDir, cfg.LogLevel)
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that the history archive is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ConfigCheck")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Validate(); err != nil {
			return err
		}
		fmt.Println("OK")
		return nil
	},
}

// doc command
var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Manage documents",
}

var docListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListDocuments")
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := a.ListDocuments()
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			fmt.Println("No documents.")
			return nil
		}
		for _, d := range docs {
			fmt.Printf("%-12s %s\n", d.Category, d.Name)
		}
		return nil
	},
}

var docNewCmd = &cobra.Command{
	Use:   "new NAME",
	Short: "Create a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, _ := cmd.Flags().GetString("content")
		overwrite, _ := cmd.Flags().GetBool("overwrite")

		a, err := newSignedInApp(cmd, "CreateDocument")
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.CreateDocument(args[0], []byte(content), overwrite)
		if err != nil {
			return err
		}
		fmt.Printf("%s has been created.\n", doc.Name)
		return nil
	},
}

var docShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ShowDocument")
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.ShowDocument(args[0])
		if err != nil {
			return err
		}
		return printDocument(cmd.OutOrStdout(), doc)
	},
}

var docEditCmd = &cobra.Command{
	Use:   "edit NAME",
	Short: "Replace a document's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := contentFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newSignedInApp(cmd, "EditDocument")
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.EditDocument(args[0], content)
		if err != nil {
			return err
		}
		fmt.Printf("%s has been updated. Previous version saved as %s.\n", args[0], snap.ID)
		return nil
	},
}

var docDupCmd = &cobra.Command{
	Use:   "dup NAME",
	Short: "Duplicate a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSignedInApp(cmd, "DuplicateDocument")
		if err != nil {
			return err
		}
		defer a.Close()

		name, err := a.DuplicateDocument(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s has been duplicated as %s.\n", args[0], name)
		return nil
	},
}

var docRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Delete a document and its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newSignedInApp(cmd, "DeleteDocument")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteDocument(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s has been deleted.\n", args[0])
		return nil
	},
}

var docUploadCmd = &cobra.Command{
	Use:   "upload PATH",
	Short: "Upload an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		overwrite, _ := cmd.Flags().GetBool("overwrite")

		a, err := newSignedInApp(cmd, "UploadFile")
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.UploadFile(args[0], overwrite)
		if err != nil {
			return err
		}
		fmt.Printf("%s has been uploaded (%s).\n", doc.Name, doc.Category.MIMEType())
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View document history",
}

var historyListCmd = &cobra.Command{
	Use:   "list NAME",
	Short: "List archived versions of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		snaps, err := a.History(args[0])
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Println("No history.")
			return nil
		}
		for _, s := range snaps {
			fmt.Printf("%s  %s\n", s.CreatedAt.Local().Format("2006-01-02 15:04:05.000"), s.ID)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show NAME SNAPSHOT",
	Short: "Print an archived version of a document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ShowVersion")
		if err != nil {
			return err
		}
		defer a.Close()

		if a.HistoryLocked() {
			passphrase, err := readSecret(EnvPassphrase, "Key passphrase: ")
			if err != nil {
				return err
			}
			if err := a.UnlockHistory(passphrase); err != nil {
				return err
			}
		}

		doc, err := a.ShowVersion(args[0], args[1])
		if err != nil {
			return err
		}
		return printDocument(cmd.OutOrStdout(), doc)
	},
}

// user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userSignupCmd = &cobra.Command{
	Use:   "signup USERNAME",
	Short: "Register a new user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readSecret(EnvPassword, "Password: ")
		if err != nil {
			return err
		}

		a, err := newApp("SignUp")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SignUp(args[0], password); err != nil {
			return err
		}
		fmt.Printf("User %s has been created.\n", args[0])
		return nil
	},
}

var userSigninCmd = &cobra.Command{
	Use:   "signin USERNAME",
	Short: "Check a user's credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readSecret(EnvPassword, "Password: ")
		if err != nil {
			return err
		}

		a, err := newApp("SignIn")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SignIn(args[0], password); err != nil {
			return err
		}
		fmt.Println("Welcome!")
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage snapshot encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the snapshot encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, err := readNewSecret(EnvPassphrase, "Key passphrase: ", "Repeat passphrase: ")
		if err != nil {
			return err
		}

		a, err := newApp("SetupKeys")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetupKeys(passphrase); err != nil {
			return err
		}
		fmt.Println("Encryption keys created.")
		return nil
	},
}

// contentFromFlags returns the new content given by exactly one of --content or --file.
func contentFromFlags(cmd *cobra.Command) ([]byte, error) {
	content, _ := cmd.Flags().GetString("content")
	path, _ := cmd.Flags().GetString("file")
	switch {
	case cmd.Flags().Changed("content") && path != "":
		return nil, fmt.Errorf("use either --content or --file, not both")
	case path == "-":
		return io.ReadAll(os.Stdin)
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return data, nil
	case cmd.Flags().Changed("content"):
		return []byte(content), nil
	default:
		return nil, fmt.Errorf("one of --content or --file is required")
	}
}

// printDocument writes text documents as-is and describes anything else.
func printDocument(w io.Writer, doc *cms.Document) error {
	if doc.Category.Supported() && !doc.Category.IsText() {
		_, err := fmt.Fprintf(w, "%s: %s, %d bytes\n", doc.Name, doc.Category.MIMEType(), len(doc.Content))
		return err
	}
	if _, err := w.Write(doc.Content); err != nil {
		return err
	}
	if len(doc.Content) > 0 && !strings.HasSuffix(string(doc.Content), "\n") {
		_, err := fmt.Fprintln(w)
		return err
	}
	return nil
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configCheckCmd)

	// doc subcommands
	for _, c := range []*cobra.Command{docNewCmd, docEditCmd, docDupCmd, docRmCmd, docUploadCmd} {
		c.Flags().StringP("user", "u", "", "Username to sign in as")
	}
	docNewCmd.Flags().StringP("content", "c", "", "Initial content")
	docNewCmd.Flags().Bool("overwrite", false, "Replace an existing document, archiving it first")
	docEditCmd.Flags().StringP("content", "c", "", "New content")
	docEditCmd.Flags().StringP("file", "f", "", "Read new content from a file (- for stdin)")
	docUploadCmd.Flags().Bool("overwrite", false, "Replace an existing image, archiving it first")
	docCmd.AddCommand(docListCmd, docNewCmd, docShowCmd, docEditCmd, docDupCmd, docRmCmd, docUploadCmd)

	// history subcommands
	historyCmd.AddCommand(historyListCmd, historyShowCmd)

	// user subcommands
	userCmd.AddCommand(userSignupCmd, userSigninCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// root commands
	rootCmd.AddCommand(configCmd, docCmd, historyCmd, userCmd, keysCmd)
}
