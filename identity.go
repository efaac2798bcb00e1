package main

import "google.golang.org/protobuf/reflect/protoreflect"

// IdentityBuilder constructs graph Identities for schema entities
// (messages and fields) discovered while walking the descriptor tree.
// Every such identity is built by resolving the entity's declaring
// file's path through a PathResolver, then overwriting that file's
// identity's Signature and Language to name the specific entity.
type IdentityBuilder struct {
	resolver *PathResolver
}

// NewIdentityBuilder constructs a builder backed by the given resolver.
func NewIdentityBuilder(resolver *PathResolver) *IdentityBuilder {
	return &IdentityBuilder{resolver: resolver}
}

// ForFile resolves the identity of the schema file declared at the
// given relative path, as recorded in the compilation unit's required
// inputs.
func (b *IdentityBuilder) ForFile(relativePath string) (Identity, error) {
	id, ok := b.resolver.RelativeToIdentity(relativePath)
	if !ok {
		return Identity{}, &NotFoundError{Entity: "required input for " + relativePath}
	}
	return id, nil
}

// ForMessage builds the identity of a message descriptor: the identity
// of its declaring file, with Signature and Language overwritten to
// name the message.
func (b *IdentityBuilder) ForMessage(md protoreflect.MessageDescriptor) (Identity, error) {
	id, err := b.ForFile(md.ParentFile().Path())
	if err != nil {
		return Identity{}, err
	}
	id.Signature = "message:" + string(md.FullName())
	id.Language = "protobuf"
	return id, nil
}

// ForField builds the identity of a field descriptor (declared or
// extension) the same way ForMessage builds one for a message.
func (b *IdentityBuilder) ForField(fd protoreflect.FieldDescriptor) (Identity, error) {
	id, err := b.ForFile(fd.ParentFile().Path())
	if err != nil {
		return Identity{}, err
	}
	id.Signature = "field:" + string(fd.FullName())
	id.Language = "protobuf"
	return id, nil
}
