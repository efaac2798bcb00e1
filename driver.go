package main

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// analyzer bundles the state shared by every layer (L1-L8) while one
// compilation unit is being analyzed. A fresh one is built per unit by
// Analyze; nothing in it is safe to reuse across units, since the Line
// Index and raw text are specific to one source file.
type analyzer struct {
	text         string
	lineIndex    *LineIndex
	resolver     *PathResolver
	identities   *IdentityBuilder
	anchors      *AnchorEmitter
	sink         Sink
	pool         DescriptorPool
	logger       *logrus.Logger
	anyTypeCache *lru.Cache[protoreflect.FullName, protoreflect.MessageDescriptor]
}

// rootMessageArgPrefix marks the compilation unit argument naming the
// root message type to parse the source file as, e.g.
// "proto_message=mypkg.MyMessage".
const rootMessageArgPrefix = "proto_message="

// parseArguments extracts the root message name and path substitutions
// out of a compilation unit's opaque argument list. A substitution
// argument has the form "virtual=real" (an empty virtual half, "=real",
// strips the real prefix with nothing put in its place). Exactly one
// proto_message argument is required.
func parseArguments(args []string) (rootMessage string, substitutions []Substitution, err error) {
	for _, arg := range args {
		if strings.HasPrefix(arg, rootMessageArgPrefix) {
			if rootMessage != "" {
				return "", nil, &PreconditionError{Msg: "proto_message argument given more than once"}
			}
			rootMessage = strings.TrimPrefix(arg, rootMessageArgPrefix)
			continue
		}
		eq := strings.IndexByte(arg, '=')
		if eq < 0 {
			return "", nil, &PreconditionError{Msg: fmt.Sprintf("unrecognized argument %q", arg)}
		}
		substitutions = append(substitutions, Substitution{VirtualDir: arg[:eq], RealDir: arg[eq+1:]})
	}
	if rootMessage == "" {
		return "", nil, &PreconditionError{Msg: "missing required proto_message argument"}
	}
	return rootMessage, substitutions, nil
}

// AnalyzeOptions configures one call to Analyze. A zero-value
// AnalyzeOptions is valid: a default logger is used.
type AnalyzeOptions struct {
	Logger *logrus.Logger
}

// Analyze is the Driver: it validates a compilation unit, compiles its
// schema dependencies, parses its textproto source, and walks the
// resulting value tree, writing anchors, edges and diagnostics into
// sink. It returns an error only for the fatal conditions in the error
// kind table (precondition failures, a missing root message or source
// file, a schema compile failure, a parse failure, or an internal
// invariant violation); schema-comment failures are recorded as
// diagnostics instead. An Any literal whose type is not in the compiled
// schema fails the parse and is returned as a parse failure.
func Analyze(ctx context.Context, unit *CompilationUnit, files []FileData, sink Sink, opts AnalyzeOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}

	if unit.SourceFile == "" {
		return &PreconditionError{Msg: "compilation unit has no source file"}
	}

	var sourceContent []byte
	contentByPath := make(map[string][]byte, len(files))
	for _, f := range files {
		contentByPath[f.Path] = f.Content
		if f.Path == unit.SourceFile {
			sourceContent = f.Content
		}
	}
	if sourceContent == nil {
		return &NotFoundError{Entity: "file contents for source file " + unit.SourceFile}
	}

	rootMessageName, substitutions, err := parseArguments(unit.Argument)
	if err != nil {
		return err
	}

	var fileID Identity
	var foundSource bool
	for _, input := range unit.RequiredInput {
		if input.Path == unit.SourceFile {
			fileID, foundSource = input.Identity, true
			break
		}
	}
	if !foundSource {
		return &NotFoundError{Entity: "required input entry for source file " + unit.SourceFile}
	}

	resolver := NewPathResolver(unit, substitutions)

	schemaSources := make(map[string]string)
	var schemaRoots []string
	for _, input := range unit.RequiredInput {
		if input.Path == unit.SourceFile {
			continue
		}
		content, ok := contentByPath[input.Path]
		if !ok {
			return &NotFoundError{Entity: "file contents for required input " + input.Path}
		}
		relative := resolver.FullToRelative(input.Path)
		schemaSources[relative] = string(content)
		schemaRoots = append(schemaRoots, relative)
	}

	pool, err := CompileSchema(ctx, schemaSources, schemaRoots)
	if err != nil {
		return fmt.Errorf("compiling schema for %s: %w", unit.SourceFile, err)
	}

	rootDesc, ok := pool.FindMessageByName(protoreflect.FullName(rootMessageName))
	if !ok {
		return &NotFoundError{Entity: "root message " + rootMessageName}
	}

	text := string(sourceContent)
	a := &analyzer{
		text:         text,
		lineIndex:    NewLineIndex(text),
		resolver:     resolver,
		identities:   NewIdentityBuilder(resolver),
		sink:         sink,
		pool:         pool,
		logger:       logger,
		anyTypeCache: newAnyTypeCache(),
	}
	a.anchors = NewAnchorEmitter(sink)

	sink.AddFileNode(fileID, text)

	root := dynamicpb.NewMessage(rootDesc)
	tree, err := ParseText(text, root, rootDesc, pool, true)
	if err != nil {
		return &ParseFailureError{Err: err}
	}

	comments := parseSchemaComments(text)
	if err := a.analyzeSchemaComments(fileID, comments); err != nil {
		logger.WithError(err).WithField("source_file", unit.SourceFile).Warn("schema comment analysis failed, recording diagnostic")
		sink.AddDiagnostic(fileID, err.Error())
	}

	logger.WithFields(logrus.Fields{
		"source_file":  unit.SourceFile,
		"root_message": rootMessageName,
	}).Info("analyzing compilation unit")

	return a.analyzeMessage(fileID, root, rootDesc, tree)
}
