package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mansoorceksport/assetfiles/internal/domain"
	"github.com/mansoorceksport/assetfiles/internal/service"
	"github.com/spf13/cobra"
)

// requestFile is the on-disk form of an attach request. content_path points
// at a local file standing in for a multipart upload.
type requestFile struct {
	FileType      string          `json:"file_type"`
	Metadata      json.RawMessage `json:"metadata"`
	Base64Encoded *string         `json:"base64Encoded"`
	ContentPath   string          `json:"content_path"`
}

type descriptorSummary struct {
	FileType    domain.FileType        `json:"file_type"`
	Method      domain.ContentMethod   `json:"method"`
	Filename    string                 `json:"filename"`
	ContentType string                 `json:"content_type,omitempty"`
	Size        int                    `json:"size"`
	RedirectURL string                 `json:"redirect_url,omitempty"`
	Metadata    map[string]interface{} `json:"metadata"`
}

var errRejected = errors.New("attach request rejected")

var validateCmd = &cobra.Command{
	Use:   "validate <request.json>",
	Short: "Validate an attach request against the policy table",
	Long: `Validate runs an attach request through the same checks the API applies,
except the duplicate filename lookup which needs the database.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fileType, _ := cmd.Flags().GetString("file-type")
		policyPath, _ := cmd.Flags().GetString("policy")

		policies, err := service.LoadPolicyTable(policyPath)
		if err != nil {
			return err
		}

		req, err := loadRequest(args[0], fileType)
		if err != nil {
			return err
		}

		validator := service.NewAttachmentValidator(policies, service.NewMimeGuesser(), nil)
		descriptor, err := validator.Validate(cmd.Context(), "", req)
		if err != nil {
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				return err
			}
			if err := writeJSON(cmd.ErrOrStderr(), verr.Body()); err != nil {
				return err
			}
			return errRejected
		}

		return writeJSON(cmd.OutOrStdout(), descriptorSummary{
			FileType:    descriptor.FileType,
			Method:      descriptor.Method,
			Filename:    descriptor.Filename,
			ContentType: descriptor.ContentType,
			Size:        len(descriptor.Content),
			RedirectURL: descriptor.RedirectURL,
			Metadata:    descriptor.Metadata,
		})
	},
}

func init() {
	validateCmd.Flags().String("file-type", "", "override the request's file_type")
	validateCmd.Flags().String("policy", "", "YAML policy file (defaults to the built-in table)")
	rootCmd.AddCommand(validateCmd)
}

func loadRequest(path, fileTypeOverride string) (*domain.AttachmentRequest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-specified path is expected CLI behavior
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}

	var rf requestFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}

	fileType := rf.FileType
	if fileTypeOverride != "" {
		fileType = fileTypeOverride
	}
	ft, err := domain.ParseFileType(fileType)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, fileType)
	}

	req := &domain.AttachmentRequest{
		FileType:      ft,
		Base64Encoded: rf.Base64Encoded,
	}
	if len(rf.Metadata) > 0 {
		req.Metadata = rf.Metadata
	}

	if rf.ContentPath != "" {
		// Relative content paths resolve against the request file
		contentPath := rf.ContentPath
		if !filepath.IsAbs(contentPath) {
			contentPath = filepath.Join(filepath.Dir(path), contentPath)
		}
		content, err := os.ReadFile(contentPath) //nolint:gosec // path comes from the user's request file
		if err != nil {
			return nil, fmt.Errorf("failed to read content: %w", err)
		}
		req.Content = &domain.UploadedContent{
			Filename: filepath.Base(contentPath),
			Data:     content,
		}
	}

	return req, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
