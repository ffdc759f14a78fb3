package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/kozaktomas/face-attendance/internal/ai"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/session"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List and manage the student roster",
	Long:  `List all registered students. Use subcommands to add, delete or import students.`,
	RunE:  runStudentsList,
}

var studentsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a student",
	Long: `Register one student. The photo is optional; without it the student is
named to the recognition service but has no reference image.

Example:
  face-attendance students add --id S1 --name "Ada Lovelace" --email ada@example.edu --photo ada.jpg`,
	RunE: runStudentsAdd,
}

var studentsDeleteCmd = &cobra.Command{
	Use:   "delete [id...]",
	Short: "Delete students by ID",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStudentsDelete,
}

var studentsImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Register students from a YAML file",
	Long: `Register every student listed in a YAML file. Photo paths are resolved
relative to the file.

Example file:
  - id: S1
    name: Ada Lovelace
    email: ada@example.edu
    department: Mathematics
    year: 2nd Year
    photo: photos/ada.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runStudentsImport,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.AddCommand(studentsAddCmd)
	studentsCmd.AddCommand(studentsDeleteCmd)
	studentsCmd.AddCommand(studentsImportCmd)

	studentsAddCmd.Flags().String("id", "", "Student ID (required)")
	studentsAddCmd.Flags().String("name", "", "Full name (required)")
	studentsAddCmd.Flags().String("email", "", "Email (required)")
	studentsAddCmd.Flags().String("department", "", "Department (default "+session.DefaultDepartment+")")
	studentsAddCmd.Flags().String("year", "", "Year (default "+session.DefaultYear+")")
	studentsAddCmd.Flags().String("photo", "", "Reference photo file")

	studentsDeleteCmd.Flags().Bool("yes", false, "Skip confirmation prompt")

	studentsImportCmd.Flags().Bool("continue-on-error", false, "Keep importing after a failed student")
}

// openRosterState opens storage and loads the state for roster commands.
func openRosterState(cmd *cobra.Command) (*session.State, func(), error) {
	cfg := config.Load()
	store, err := openStorage(cfg, mustGetBool(cmd, "memory"))
	if err != nil {
		return nil, nil, err
	}
	state, err := loadState(cmd.Context(), cfg, store.backend, nil)
	if err != nil {
		store.backend.Close()
		return nil, nil, err
	}
	return state, func() { store.backend.Close() }, nil
}

func runStudentsList(cmd *cobra.Command, args []string) error {
	state, closeFn, err := openRosterState(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	students := state.Students()
	if len(students) == 0 {
		fmt.Println("No students registered.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tDEPARTMENT\tYEAR\tREGISTERED\tPHOTO")
	fmt.Fprintln(w, "--\t----\t-----\t----------\t----\t----------\t-----")

	for _, s := range students {
		photo := ""
		if s.HasReference() {
			photo = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Email, s.Department, s.Year, s.RegistrationDate, photo)
	}

	w.Flush()

	fmt.Printf("\nTotal: %d students\n", len(students))
	return nil
}

// readAvatar loads a reference photo as a data URL.
func readAvatar(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read photo %s: %w", path, err)
	}
	return ai.EncodeDataURL(data), nil
}

func runStudentsAdd(cmd *cobra.Command, args []string) error {
	avatar, err := readAvatar(mustGetString(cmd, "photo"))
	if err != nil {
		return err
	}

	state, closeFn, err := openRosterState(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	student, err := state.RegisterStudent(cmd.Context(), database.Student{
		ID:         mustGetString(cmd, "id"),
		Name:       mustGetString(cmd, "name"),
		Email:      mustGetString(cmd, "email"),
		Department: mustGetString(cmd, "department"),
		Year:       mustGetString(cmd, "year"),
		Avatar:     avatar,
	})
	if err != nil {
		return fmt.Errorf("failed to register student: %w", err)
	}

	fmt.Printf("Registered %s (%s), %s %s\n", student.Name, student.ID, student.Department, student.Year)
	return nil
}

func runStudentsDelete(cmd *cobra.Command, args []string) error {
	skipConfirm := mustGetBool(cmd, "yes")

	state, closeFn, err := openRosterState(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	// Validate IDs and show what will be deleted
	var validIDs []string
	fmt.Println("Students to delete:")
	for _, id := range args {
		if s, ok := state.Student(id); ok {
			fmt.Printf("  - %s (%s)\n", s.Name, id)
			validIDs = append(validIDs, id)
		} else {
			fmt.Printf("  - WARNING: Unknown ID %s (skipping)\n", id)
		}
	}

	if len(validIDs) == 0 {
		return errors.New("no valid students to delete")
	}

	if !skipConfirm {
		fmt.Printf("\nDelete %d student(s)? [y/N]: ", len(validIDs))
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	for _, id := range validIDs {
		if err := state.DeleteStudent(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete student %s: %w", id, err)
		}
	}

	fmt.Printf("Deleted %d student(s).\n", len(validIDs))
	return nil
}

// importEntry is one student in a roster import file.
type importEntry struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Email      string `yaml:"email"`
	Department string `yaml:"department"`
	Year       string `yaml:"year"`
	Photo      string `yaml:"photo"`
}

// readImportFile parses a roster file and resolves photo paths against its directory.
func readImportFile(path string) ([]importEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var entries []importEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range entries {
		if entries[i].Photo != "" && !filepath.IsAbs(entries[i].Photo) {
			entries[i].Photo = filepath.Join(dir, entries[i].Photo)
		}
	}
	return entries, nil
}

func (e importEntry) student() (database.Student, error) {
	avatar, err := readAvatar(e.Photo)
	if err != nil {
		return database.Student{}, err
	}
	return database.Student{
		ID:         e.ID,
		Name:       e.Name,
		Email:      e.Email,
		Department: e.Department,
		Year:       e.Year,
		Avatar:     avatar,
	}, nil
}

// importStudents registers entries in file order and returns how many succeeded.
func importStudents(ctx context.Context, state *session.State, entries []importEntry, continueOnError bool, bar *progressbar.ProgressBar) (int, []error) {
	var imported int
	var errs []error
	for _, e := range entries {
		st, err := e.student()
		if err == nil {
			_, err = state.RegisterStudent(ctx, st)
		}
		if bar != nil {
			bar.Add(1)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("student %q: %w", e.ID, err))
			if !continueOnError {
				break
			}
			continue
		}
		imported++
	}
	return imported, errs
}

func runStudentsImport(cmd *cobra.Command, args []string) error {
	continueOnError := mustGetBool(cmd, "continue-on-error")

	entries, err := readImportFile(args[0])
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No students in file.")
		return nil
	}

	state, closeFn, err := openRosterState(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetDescription("Registering students"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("students"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	imported, errs := importStudents(cmd.Context(), state, entries, continueOnError, bar)
	bar.Finish()

	fmt.Printf("\nImported %d of %d students\n", imported, len(entries))
	for _, err := range errs {
		fmt.Printf("  - %v\n", err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d student(s) failed to import", len(errs))
	}
	return nil
}
