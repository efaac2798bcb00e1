package main

import "google.golang.org/protobuf/reflect/protoreflect"

// analyzeMessage walks every field of a message descriptor (declared
// fields, whether set or not, in descriptor order) and every extension
// actually present in the value (in whatever order Range visits them,
// since extensions have no fixed position in the declared schema),
// dispatching each occurrence to analyzeField.
func (a *analyzer) analyzeMessage(fileID Identity, msg protoreflect.Message, md protoreflect.MessageDescriptor, loc LocationTree) error {
	fields := md.Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if fd.Cardinality() == protoreflect.Repeated {
			count := msg.Get(fd).List().Len()
			for occurrence := 0; occurrence < count; occurrence++ {
				if err := a.analyzeField(fileID, msg, loc, fd, occurrence); err != nil {
					return err
				}
			}
			continue
		}
		if err := a.analyzeField(fileID, msg, loc, fd, NonRepeatedIndex); err != nil {
			return err
		}
	}

	var extensionErr error
	msg.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		if !fd.IsExtension() {
			return true
		}
		if fd.Cardinality() == protoreflect.Repeated {
			list := v.List()
			for occurrence := 0; occurrence < list.Len(); occurrence++ {
				if err := a.analyzeField(fileID, msg, loc, fd, occurrence); err != nil {
					extensionErr = err
					return false
				}
			}
			return true
		}
		if err := a.analyzeField(fileID, msg, loc, fd, NonRepeatedIndex); err != nil {
			extensionErr = err
			return false
		}
		return true
	})
	return extensionErr
}
