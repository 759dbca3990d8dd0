package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/MarkoPoloResearchLab/velan_e2e/internal/locator"
)

const (
	programName            = "catalog-audit"
	flagNameSnapshots      = "snapshots"
	flagUsageSnapshots     = "directory of saved portal pages (.html) every field must resolve against"
	usageFormat            = "usage: %s [--%s dir] [catalog.yml]\n"
	snapshotExtensionHTML  = ".html"
	snapshotExtensionHTM   = ".htm"
	exitCodeAuditFailed    = 1
	exitCodeUsage          = 2
	okMessageFormat        = "%s OK (%d fields)\n"
	failedMessageFormat    = "%s failed\n"
	warningLineFormat      = "WARN: %s\n"
	errorLineFormat        = "ERROR: %s\n"
	unexpectedArgsFormat   = "unexpected arguments: %s"
	argumentSeparator      = " "
	noOverridesDescription = "built-in catalog"
	fieldsKey              = "fields"
)

var (
	errNoSnapshots        = errors.New("no html snapshots found")
	errTopLevelNotMapping = errors.New("top level must be a mapping")
	errFieldsNotMapping   = errors.New("fields must map field names to candidates")
)

type auditResult struct {
	fields   int
	errors   []string
	warnings []string
}

func (result *auditResult) addError(message string, arguments ...any) {
	result.errors = append(result.errors, fmt.Sprintf(message, arguments...))
}

func (result *auditResult) addWarning(message string, arguments ...any) {
	result.warnings = append(result.warnings, fmt.Sprintf(message, arguments...))
}

func (result auditResult) ok() bool {
	return len(result.errors) == 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(arguments []string, stdout io.Writer, stderr io.Writer) int {
	flagSet := pflag.NewFlagSet(programName, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	snapshotsDirectory := flagSet.String(flagNameSnapshots, "", flagUsageSnapshots)
	flagSet.Usage = func() {
		_, _ = fmt.Fprintf(stderr, usageFormat, programName, flagNameSnapshots)
		flagSet.PrintDefaults()
	}
	if parseErr := flagSet.Parse(arguments); parseErr != nil {
		return exitCodeUsage
	}
	positional := flagSet.Args()
	if len(positional) > 1 {
		_, _ = fmt.Fprintf(stderr, errorLineFormat, fmt.Sprintf(unexpectedArgsFormat, strings.Join(positional[1:], argumentSeparator)))
		flagSet.Usage()
		return exitCodeUsage
	}
	catalogPath := ""
	if len(positional) == 1 {
		catalogPath = positional[0]
	}

	result := runAudit(catalogPath, *snapshotsDirectory)
	sort.Strings(result.errors)
	sort.Strings(result.warnings)

	for _, warning := range result.warnings {
		_, _ = fmt.Fprintf(stdout, warningLineFormat, warning)
	}
	for _, errorMessage := range result.errors {
		_, _ = fmt.Fprintf(stderr, errorLineFormat, errorMessage)
	}
	if !result.ok() {
		_, _ = fmt.Fprintf(stderr, failedMessageFormat, programName)
		return exitCodeAuditFailed
	}
	_, _ = fmt.Fprintf(stdout, okMessageFormat, programName, result.fields)
	return 0
}

// runAudit checks the catalog produced by merging catalogPath over the
// built-in lists. An empty catalogPath audits the built-in catalog alone.
func runAudit(catalogPath string, snapshotsDirectory string) auditResult {
	var result auditResult

	if strings.TrimSpace(catalogPath) != "" {
		overrideFields, readErr := readOverrideFields(catalogPath)
		if readErr != nil {
			result.addError("%v", readErr)
			return result
		}
		checkOverrideFields(catalogPath, overrideFields, &result)
	}

	catalog, loadErr := locator.LoadCatalog(catalogPath)
	if loadErr != nil {
		result.addError("%v", loadErr)
		return result
	}
	result.fields = len(catalog)

	for _, issue := range locator.Validate(catalog) {
		switch issue.Severity {
		case locator.SeverityError:
			result.addError("%s", issue)
		default:
			result.addWarning("%s", issue)
		}
	}

	if strings.TrimSpace(snapshotsDirectory) != "" {
		checkSnapshotCoverage(catalog, snapshotsDirectory, &result)
	}
	return result
}

// readOverrideFields returns the keys of the document's fields mapping in
// file order.
func readOverrideFields(catalogPath string) ([]string, error) {
	document, readErr := os.ReadFile(catalogPath)
	if readErr != nil {
		return nil, fmt.Errorf("read catalog %s: %w", catalogPath, readErr)
	}
	var root yaml.Node
	if decodeErr := yaml.Unmarshal(document, &root); decodeErr != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", catalogPath, decodeErr)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	fieldsNode, mappingErr := fieldsMapping(root.Content[0])
	if mappingErr != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", catalogPath, mappingErr)
	}
	if fieldsNode == nil {
		return nil, nil
	}
	fields := make([]string, 0, len(fieldsNode.Content)/2)
	for index := 0; index+1 < len(fieldsNode.Content); index += 2 {
		fields = append(fields, strings.TrimSpace(fieldsNode.Content[index].Value))
	}
	return fields, nil
}

func fieldsMapping(document *yaml.Node) (*yaml.Node, error) {
	if document.Kind != yaml.MappingNode {
		return nil, errTopLevelNotMapping
	}
	for index := 0; index+1 < len(document.Content); index += 2 {
		if document.Content[index].Value != fieldsKey {
			continue
		}
		fieldsNode := document.Content[index+1]
		if fieldsNode.Kind != yaml.MappingNode {
			return nil, errFieldsNotMapping
		}
		return fieldsNode, nil
	}
	return nil, nil
}

func checkOverrideFields(catalogPath string, fields []string, result *auditResult) {
	builtIn := locator.DefaultCatalog()
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if _, duplicate := seen[field]; duplicate {
			result.addError("%s: field %s is defined more than once", catalogPath, field)
			continue
		}
		seen[field] = struct{}{}
		if _, known := builtIn[field]; !known {
			result.addWarning("%s: field %s is not used by the suite", catalogPath, field)
		}
	}
	if len(fields) == 0 {
		result.addWarning("%s: no overrides; auditing the %s", catalogPath, noOverridesDescription)
	}
}

// checkSnapshotCoverage reports fields none of whose candidates match any
// saved page. A field that matches nowhere is a warning, since a snapshot
// set rarely covers every screen.
func checkSnapshotCoverage(catalog locator.Catalog, snapshotsDirectory string, result *auditResult) {
	finders, scanErr := loadSnapshots(snapshotsDirectory)
	if scanErr != nil {
		result.addError("snapshot scan: %v", scanErr)
		return
	}

	ctx := context.Background()
	for _, field := range catalog.Fields() {
		candidates := catalog[field]
		matched := false
		for _, finder := range finders {
			if _, resolveErr := locator.Resolve(ctx, finder, field, candidates); resolveErr == nil {
				matched = true
				break
			}
		}
		if !matched {
			result.addWarning("snapshot scan: %s matches no element in %d pages under %s", field, len(finders), snapshotsDirectory)
		}
	}
}

func loadSnapshots(root string) ([]*locator.DocumentFinder, error) {
	info, statErr := os.Stat(root)
	if statErr != nil {
		return nil, statErr
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var finders []*locator.DocumentFinder
	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.Type()&os.ModeSymlink != 0 {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case snapshotExtensionHTML, snapshotExtensionHTM:
		default:
			return nil
		}

		finder, loadErr := loadSnapshot(path)
		if loadErr != nil {
			return loadErr
		}
		finders = append(finders, finder)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	if len(finders) == 0 {
		return nil, fmt.Errorf("%w under %s", errNoSnapshots, root)
	}
	return finders, nil
}

func loadSnapshot(path string) (*locator.DocumentFinder, error) {
	file, openErr := os.Open(path)
	if openErr != nil {
		return nil, openErr
	}
	finder, parseErr := locator.NewDocumentFinder(file)
	closeErr := file.Close()
	if parseErr != nil || closeErr != nil {
		return nil, fmt.Errorf("%s: %w", path, errors.Join(parseErr, closeErr))
	}
	return finder, nil
}
