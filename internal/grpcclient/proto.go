package grpcclient

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// schema holds the message descriptors of the OCR service:
//
//	message RecognizeRequest  { bytes image_data = 1; string format = 2; string language = 3; }
//	message RecognizeResponse { string text = 1; float confidence = 2; }
//	service OCRService { rpc Recognize(RecognizeRequest) returns (RecognizeResponse); }
type schema struct {
	request  protoreflect.MessageDescriptor
	response protoreflect.MessageDescriptor
}

func field(name string, num int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(num),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     typ.Enum(),
		JsonName: proto.String(protoJSONName(name)),
	}
}

func protoJSONName(name string) string {
	out := make([]byte, 0, len(name))
	upper := false
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if ch == '_' {
			upper = true
			continue
		}
		if upper && ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		upper = false
		out = append(out, ch)
	}
	return string(out)
}

func loadSchema() (*schema, error) {
	fdp := &descriptorpb.FileDescriptorProto{
		Name:    proto.String(protoFile),
		Package: proto.String(protoPackage),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("RecognizeRequest"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("image_data", 1, descriptorpb.FieldDescriptorProto_TYPE_BYTES),
					field("format", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					field("language", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				},
			},
			{
				Name: proto.String("RecognizeResponse"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("text", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					field("confidence", 2, descriptorpb.FieldDescriptorProto_TYPE_FLOAT),
				},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("OCRService"),
			Method: []*descriptorpb.MethodDescriptorProto{{
				Name:       proto.String("Recognize"),
				InputType:  proto.String("." + protoPackage + ".RecognizeRequest"),
				OutputType: proto.String("." + protoPackage + ".RecognizeResponse"),
			}},
		}},
	}

	fd, err := protodesc.NewFile(fdp, new(protoregistry.Files))
	if err != nil {
		return nil, err
	}
	msgs := fd.Messages()
	return &schema{
		request:  msgs.ByName("RecognizeRequest"),
		response: msgs.ByName("RecognizeResponse"),
	}, nil
}

func protoBytes(b []byte) protoreflect.Value  { return protoreflect.ValueOfBytes(b) }
func protoString(s string) protoreflect.Value { return protoreflect.ValueOfString(s) }
