package main

import (
	"context"
	"fmt"

	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
)

// DescriptorPool is the read-only schema registry the analyzer looks
// entities up in once schema compilation has finished. It is the Go
// stand-in for the original indexer's google::protobuf::DescriptorPool.
type DescriptorPool interface {
	FindMessageByName(name protoreflect.FullName) (protoreflect.MessageDescriptor, bool)
	FindExtensionByName(name protoreflect.FullName) (protoreflect.ExtensionDescriptor, bool)
}

type registryPool struct {
	files      *protoregistry.Files
	extensions map[protoreflect.FullName]protoreflect.ExtensionDescriptor
}

func (p *registryPool) FindMessageByName(name protoreflect.FullName) (protoreflect.MessageDescriptor, bool) {
	d, err := p.files.FindDescriptorByName(name)
	if err != nil {
		return nil, false
	}
	md, ok := d.(protoreflect.MessageDescriptor)
	return md, ok
}

func (p *registryPool) FindExtensionByName(name protoreflect.FullName) (protoreflect.ExtensionDescriptor, bool) {
	ext, ok := p.extensions[name]
	return ext, ok
}

// CompileSchema builds a descriptor pool from in-memory schema sources,
// keyed by the relative path each source was imported under (the same
// form the files' own `import "…"` statements use, since protocompile
// resolves imports against the Accessor map's keys, not the filesystem).
// roots names the files to compile directly; their transitive imports
// are pulled out of sources automatically and registered alongside them.
func CompileSchema(ctx context.Context, sources map[string]string, roots []string) (DescriptorPool, error) {
	compiler := protocompile.Compiler{
		Resolver: &protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(sources),
		},
	}
	compiled, err := compiler.Compile(ctx, roots...)
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}

	files := new(protoregistry.Files)
	extensions := make(map[protoreflect.FullName]protoreflect.ExtensionDescriptor)
	seen := make(map[string]bool)

	var register func(fd protoreflect.FileDescriptor) error
	register = func(fd protoreflect.FileDescriptor) error {
		if seen[fd.Path()] {
			return nil
		}
		seen[fd.Path()] = true
		imports := fd.Imports()
		for i := 0; i < imports.Len(); i++ {
			if err := register(imports.Get(i).FileDescriptor); err != nil {
				return err
			}
		}
		collectExtensions(fd.Extensions(), extensions)
		collectMessageExtensions(fd.Messages(), extensions)
		return files.RegisterFile(fd)
	}

	for _, fd := range compiled {
		if err := register(fd); err != nil {
			return nil, fmt.Errorf("registering compiled schema: %w", err)
		}
	}
	return &registryPool{files: files, extensions: extensions}, nil
}

func collectExtensions(exts protoreflect.ExtensionDescriptors, out map[protoreflect.FullName]protoreflect.ExtensionDescriptor) {
	for i := 0; i < exts.Len(); i++ {
		ext := exts.Get(i)
		out[ext.FullName()] = ext
	}
}

func collectMessageExtensions(msgs protoreflect.MessageDescriptors, out map[protoreflect.FullName]protoreflect.ExtensionDescriptor) {
	for i := 0; i < msgs.Len(); i++ {
		md := msgs.Get(i)
		collectExtensions(md.Extensions(), out)
		collectMessageExtensions(md.Messages(), out)
	}
}
