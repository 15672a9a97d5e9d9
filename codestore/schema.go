package codestore

import (
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/pkg/errors"

	"github.com/egonelbre/exp-raster-compression/arithcode"
)

// tableSchema describes the frequency table record:
//
//	message Entry { uint32 symbol = 1; uint64 count = 2; }
//	message FrequencyTable { repeated Entry entries = 1; }
var tableSchema = &descriptorpb.FileDescriptorProto{
	Name:    proto.String("codestore/table.proto"),
	Package: proto.String("codestore"),
	Syntax:  proto.String("proto3"),
	MessageType: []*descriptorpb.DescriptorProto{
		{
			Name: proto.String("Entry"),
			Field: []*descriptorpb.FieldDescriptorProto{
				{
					Name:     proto.String("symbol"),
					JsonName: proto.String("symbol"),
					Number:   proto.Int32(1),
					Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
					Type:     descriptorpb.FieldDescriptorProto_TYPE_UINT32.Enum(),
				},
				{
					Name:     proto.String("count"),
					JsonName: proto.String("count"),
					Number:   proto.Int32(2),
					Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
					Type:     descriptorpb.FieldDescriptorProto_TYPE_UINT64.Enum(),
				},
			},
		},
		{
			Name: proto.String("FrequencyTable"),
			Field: []*descriptorpb.FieldDescriptorProto{
				{
					Name:     proto.String("entries"),
					JsonName: proto.String("entries"),
					Number:   proto.Int32(1),
					Label:    descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
					Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
					TypeName: proto.String(".codestore.Entry"),
				},
			},
		},
	},
}

var (
	tableDesc    protoreflect.MessageDescriptor
	entriesField protoreflect.FieldDescriptor
	symbolField  protoreflect.FieldDescriptor
	countField   protoreflect.FieldDescriptor
)

func init() {
	fd, err := protodesc.NewFile(tableSchema, new(protoregistry.Files))
	if err != nil {
		panic(err)
	}

	tableDesc = fd.Messages().ByName("FrequencyTable")
	entriesField = tableDesc.Fields().ByName("entries")

	entryDesc := fd.Messages().ByName("Entry")
	symbolField = entryDesc.Fields().ByName("symbol")
	countField = entryDesc.Fields().ByName("count")
}

// marshalTable writes table as a single line of protobuf text.
func marshalTable(table *arithcode.FrequencyTable) ([]byte, error) {
	msg := dynamicpb.NewMessage(tableDesc)
	list := msg.Mutable(entriesField).List()
	for _, e := range table.Entries() {
		entry := list.NewElement().Message()
		entry.Set(symbolField, protoreflect.ValueOfUint32(uint32(e.Symbol)))
		entry.Set(countField, protoreflect.ValueOfUint64(e.Count))
		list.Append(protoreflect.ValueOfMessage(entry))
	}

	return prototext.MarshalOptions{Multiline: false}.Marshal(msg)
}

// unmarshalTable parses a line written by marshalTable. Fields outside the
// schema and malformed text are rejected.
func unmarshalTable(line []byte) (*arithcode.FrequencyTable, error) {
	msg := dynamicpb.NewMessage(tableDesc)
	if err := (prototext.UnmarshalOptions{}).Unmarshal(line, msg); err != nil {
		return nil, errors.Wrapf(arithcode.ErrModel, "parse table: %v", err)
	}

	list := msg.Get(entriesField).List()
	entries := make([]arithcode.Entry, list.Len())
	for i := range entries {
		entry := list.Get(i).Message()
		entries[i] = arithcode.Entry{
			Symbol: int(entry.Get(symbolField).Uint()),
			Count:  entry.Get(countField).Uint(),
		}
	}
	return arithcode.NewFrequencyTable(entries)
}
