package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveTypeString(t *testing.T) {
	tests := []struct {
		typeVal  PrimitiveType
		expected string
	}{
		{TypeString, "string"},
		{TypeText, "text"},
		{TypeInt, "int"},
		{TypeBigInt, "bigint"},
		{TypeFloat, "float"},
		{TypeDecimal, "decimal"},
		{TypeBool, "bool"},
		{TypeTimestamp, "timestamp"},
		{TypeUUID, "uuid"},
		{TypeEnum, "enum"},
		{PrimitiveType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.typeVal.String())
		})
	}
}

func TestParsePrimitiveType(t *testing.T) {
	p, err := ParsePrimitiveType("UUID")
	require.NoError(t, err)
	assert.Equal(t, TypeUUID, p)

	_, err = ParsePrimitiveType("json")
	assert.Error(t, err)
}

func TestTypeSpecHelpers(t *testing.T) {
	nullable := &TypeSpec{BaseType: TypeDecimal, Nullable: true}
	assert.Equal(t, "decimal?", nullable.String())
	assert.Equal(t, "decimal!", nullable.NonNull().String())
	assert.True(t, nullable.Nullable, "NonNull must not modify the receiver")
	assert.True(t, nullable.IsNumeric())
	assert.True(t, nullable.IsOrdered())

	enum := &TypeSpec{BaseType: TypeEnum}
	assert.True(t, enum.IsText())
	assert.False(t, (&TypeSpec{BaseType: TypeBool}).IsOrdered())
	assert.False(t, (&TypeSpec{BaseType: TypeUUID}).IsOrdered())
}

func TestFieldIndexed(t *testing.T) {
	assert.False(t, (&Field{Name: "Foo"}).Indexed())
	assert.True(t, (&Field{Name: "Tags", Virtual: true}).Indexed())
	assert.True(t, (&Field{Name: "Id", Constraints: []Constraint{{Type: ConstraintPrimary}}}).Indexed())
	assert.True(t, (&Field{Name: "Slug", Constraints: []Constraint{{Type: ConstraintUnique}}}).Indexed())
}

func TestResourceSchemaLookups(t *testing.T) {
	s := NewResourceSchema("BlogPost")
	assert.Equal(t, "blog_post", s.TableName)

	s.AddField(&Field{Name: "Id", Type: &TypeSpec{BaseType: TypeInt}, Constraints: []Constraint{{Type: ConstraintPrimary}}}).
		AddField(&Field{Name: "AuthorId", Type: &TypeSpec{BaseType: TypeInt, Nullable: true}})
	s.AddRelationship(&Relationship{
		Type:           RelationshipBelongsTo,
		TargetResource: "Author",
		FieldName:      "Author",
		ForeignKey:     "AuthorId",
	}).AddRelationship(&Relationship{
		Type:           RelationshipHasManyThrough,
		TargetResource: "Tag",
		FieldName:      "Labels",
		JoinTable:      "post_labels",
		ForeignKey:     "post_id",
		AssociationKey: "label_id",
		Primary:        true,
	})

	f, ok := s.LookupField("authorid")
	require.True(t, ok)
	assert.Equal(t, "AuthorId", f.Name)

	_, ok = s.FieldMap()["authorid"]
	assert.True(t, ok)

	pk, err := s.GetPrimaryKey()
	require.NoError(t, err)
	assert.Equal(t, "Id", pk.Name)

	fk, ok := s.DirectForeignKey("author", "")
	require.True(t, ok)
	assert.Equal(t, "AuthorId", fk.Name)

	_, ok = s.DirectForeignKey("author", "Editor")
	assert.False(t, ok)

	require.Len(t, s.ForeignKeysTo("Author"), 1)
	assert.Empty(t, s.ForeignKeysTo("Tag"), "associations are not foreign keys")
	s.AddField(&Field{Name: "EditorId", Type: &TypeSpec{BaseType: TypeInt, Nullable: true}})
	s.AddRelationship(&Relationship{
		Type:           RelationshipBelongsTo,
		TargetResource: "Author",
		FieldName:      "Editor",
		ForeignKey:     "EditorId",
	})
	fks := s.ForeignKeysTo("author")
	require.Len(t, fks, 2)
	assert.Equal(t, "AuthorId", fks[0].Name)
	assert.Equal(t, "EditorId", fks[1].Name)

	rel, ok := s.PrimaryAssociation("TAG")
	require.True(t, ok)
	assert.Equal(t, "BlogPost", rel.SourceResource)
	assert.Equal(t, "Labels", rel.MapName())

	_, ok = s.PrimaryAssociation("Author")
	assert.False(t, ok)

	rel, ok = s.LookupRelationship("labels")
	require.True(t, ok)
	assert.True(t, rel.IsAssociation())
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Post":       "post",
		"BlogPost":   "blog_post",
		"HTTPServer": "http_server",
		"userID":     "user_id",
	}
	for in, want := range tests {
		assert.Equal(t, want, toSnakeCase(in), in)
	}
}

func TestRecordAndContextLookups(t *testing.T) {
	rec := Record{"Title": "Hello"}
	v, ok := rec.Get("title")
	require.True(t, ok)
	assert.Equal(t, "Hello", v)

	ctx := &RequestContext{UserID: 7, Values: map[string]interface{}{"Locale": "en"}}
	assert.Equal(t, 7, UserIDField(&TypeSpec{BaseType: TypeInt}).Read(ctx))
	assert.Nil(t, RoleIDField(&TypeSpec{BaseType: TypeInt}).Read(ctx))
	assert.Equal(t, "en", ValueField("locale", &TypeSpec{BaseType: TypeString}).Read(ctx))
	assert.Nil(t, ValueField("locale", &TypeSpec{BaseType: TypeString}).Read(nil))
}
