package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/validator"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// questionFile is the YAML layout accepted by "questions import".
type questionFile struct {
	Questions []model.Question `yaml:"questions"`
}

// questionImporter is the part of the catalog the import command uses.
type questionImporter interface {
	ImportQuestions(ctx context.Context, questions []model.Question) error
}

var errImportAborted = errors.New("import aborted")

func newQuestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Manage the question set",
	}

	var yes bool
	importCmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Replace the whole question set from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			questions, err := parseQuestionFile(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			if !yes {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return errors.New("refusing to replace questions without --yes on a non-interactive stdin")
				}
				if !confirm(os.Stdin, cmd.OutOrStdout(), fmt.Sprintf("Replace the question set with %d questions?", len(questions))) {
					return errImportAborted
				}
			}

			return runImport(cmd.Context(), current.catalog, questions, cmd.OutOrStdout())
		},
	}
	importCmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	cmd.AddCommand(importCmd)
	return cmd
}

// parseQuestionFile decodes and validates a question file. Order numbers
// default to the position in the file.
func parseQuestionFile(r io.Reader) ([]model.Question, error) {
	var file questionFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("file is empty")
		}
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	if len(file.Questions) == 0 {
		return nil, errors.New("no questions found")
	}

	for i := range file.Questions {
		q := &file.Questions[i]
		if q.OrderNum == 0 {
			q.OrderNum = i + 1
		}
		if fields := validator.Struct(q); fields != nil {
			return nil, fmt.Errorf("question #%d: %s", i+1, joinFields(fields))
		}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question #%d: %w", i+1, err)
		}
	}
	return file.Questions, nil
}

func runImport(ctx context.Context, store questionImporter, questions []model.Question, out io.Writer) error {
	if err := store.ImportQuestions(ctx, questions); err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d questions.\n", len(questions))
	return nil
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
