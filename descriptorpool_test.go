package main

import (
	"context"
	"testing"
)

const testSchemaSource = `
syntax = "proto2";
package testpkg;

message Inner {
  optional string value = 1;
}

message Outer {
  optional Inner inner = 1;
  repeated string tags = 2;

  extensions 100 to 199;
}

extend Outer {
  optional string extra = 100;
}
`

func compileTestSchema(t *testing.T) DescriptorPool {
	t.Helper()
	pool, err := CompileSchema(context.Background(), map[string]string{
		"test.proto": testSchemaSource,
	}, []string{"test.proto"})
	if err != nil {
		t.Fatalf("CompileSchema() error: %v", err)
	}
	return pool
}

func TestCompileSchemaFindMessageByName(t *testing.T) {
	pool := compileTestSchema(t)

	md, ok := pool.FindMessageByName("testpkg.Outer")
	if !ok {
		t.Fatalf("FindMessageByName(testpkg.Outer) = _, false; want true")
	}
	if md.Fields().ByName("inner") == nil {
		t.Errorf("Outer descriptor missing field %q", "inner")
	}

	if _, ok := pool.FindMessageByName("testpkg.DoesNotExist"); ok {
		t.Errorf("FindMessageByName(testpkg.DoesNotExist) = _, true; want false")
	}
}

func TestCompileSchemaFindExtensionByName(t *testing.T) {
	pool := compileTestSchema(t)

	ext, ok := pool.FindExtensionByName("testpkg.extra")
	if !ok {
		t.Fatalf("FindExtensionByName(testpkg.extra) = _, false; want true")
	}
	if ext.ContainingMessage().FullName() != "testpkg.Outer" {
		t.Errorf("extra's containing message = %s; want testpkg.Outer", ext.ContainingMessage().FullName())
	}

	if _, ok := pool.FindExtensionByName("testpkg.nope"); ok {
		t.Errorf("FindExtensionByName(testpkg.nope) = _, true; want false")
	}
}

func TestCompileSchemaImportsAreRegistered(t *testing.T) {
	pool, err := CompileSchema(context.Background(), map[string]string{
		"base.proto": `
syntax = "proto3";
package testpkg;

message Base {
  string id = 1;
}
`,
		"derived.proto": `
syntax = "proto3";
package testpkg;

import "base.proto";

message Derived {
  Base base = 1;
}
`,
	}, []string{"derived.proto"})
	if err != nil {
		t.Fatalf("CompileSchema() error: %v", err)
	}

	if _, ok := pool.FindMessageByName("testpkg.Base"); !ok {
		t.Errorf("FindMessageByName(testpkg.Base) = _, false; want true (transitively imported message should be registered)")
	}
	if _, ok := pool.FindMessageByName("testpkg.Derived"); !ok {
		t.Errorf("FindMessageByName(testpkg.Derived) = _, false; want true")
	}
}

func TestCompileSchemaInvalidSourceFails(t *testing.T) {
	_, err := CompileSchema(context.Background(), map[string]string{
		"broken.proto": `this is not valid proto syntax {{{`,
	}, []string{"broken.proto"})
	if err == nil {
		t.Fatalf("CompileSchema() with invalid source = nil error; want error")
	}
}
