// Package schematest builds a small content catalog shared by filter tests.
package schematest

import (
	"github.com/conduit-lang/contentq/internal/orm/schema"
)

// Int returns a non-nullable int type
func Int() *schema.TypeSpec { return &schema.TypeSpec{BaseType: schema.TypeInt} }

// NullInt returns a nullable int type
func NullInt() *schema.TypeSpec { return &schema.TypeSpec{BaseType: schema.TypeInt, Nullable: true} }

// Str returns a non-nullable string type
func Str() *schema.TypeSpec { return &schema.TypeSpec{BaseType: schema.TypeString} }

// NullStr returns a nullable string type
func NullStr() *schema.TypeSpec { return &schema.TypeSpec{BaseType: schema.TypeString, Nullable: true} }

func primary(name string) *schema.Field {
	return &schema.Field{
		Name:        name,
		Type:        Int(),
		Constraints: []schema.Constraint{{Type: schema.ConstraintPrimary}},
	}
}

func indexed(f *schema.Field) *schema.Field {
	f.Constraints = append(f.Constraints, schema.Constraint{Type: schema.ConstraintIndex})
	return f
}

// Article returns the Article resource: owned, tagged and linked to videos
// through join tables, with a direct Category foreign key.
func Article() *schema.ResourceSchema {
	s := schema.NewResourceSchema("Article")
	s.OwnerField = "OwnerId"
	s.RoleField = "OwnerRoleId"
	s.AddField(primary("Id")).
		AddField(indexed(&schema.Field{Name: "Title", Type: Str()})).
		AddField(&schema.Field{Name: "Name", Type: Str()}).
		AddField(&schema.Field{Name: "Foo", Type: NullStr()}).
		AddField(&schema.Field{Name: "Age", Type: Int()}).
		AddField(&schema.Field{Name: "Views", Type: &schema.TypeSpec{BaseType: schema.TypeBigInt, Nullable: true}}).
		AddField(&schema.Field{Name: "Score", Type: &schema.TypeSpec{BaseType: schema.TypeFloat, Nullable: true}}).
		AddField(&schema.Field{Name: "Price", Type: &schema.TypeSpec{BaseType: schema.TypeDecimal, Nullable: true}}).
		AddField(&schema.Field{Name: "Published", Type: &schema.TypeSpec{BaseType: schema.TypeBool}}).
		AddField(&schema.Field{Name: "CreatedAt", Type: &schema.TypeSpec{BaseType: schema.TypeTimestamp, Nullable: true}}).
		AddField(&schema.Field{Name: "Ref", Type: &schema.TypeSpec{BaseType: schema.TypeUUID, Nullable: true}}).
		AddField(&schema.Field{Name: "Status", Type: &schema.TypeSpec{
			BaseType:   schema.TypeEnum,
			EnumValues: []string{"draft", "published", "archived"},
		}}).
		AddField(&schema.Field{Name: "OwnerId", Type: NullInt()}).
		AddField(&schema.Field{Name: "OwnerRoleId", Type: NullInt()}).
		AddField(indexed(&schema.Field{Name: "CategoryId", Type: NullInt()}))

	s.AddRelationship(&schema.Relationship{
		Type:           schema.RelationshipBelongsTo,
		TargetResource: "Category",
		FieldName:      "Category",
		ForeignKey:     "CategoryId",
		Nullable:       true,
	}).AddRelationship(&schema.Relationship{
		Type:           schema.RelationshipHasManyThrough,
		TargetResource: "Tag",
		FieldName:      "Tags",
		JoinTable:      "article_tags",
		ForeignKey:     "article_id",
		AssociationKey: "tag_id",
		Primary:        true,
	}).AddRelationship(&schema.Relationship{
		Type:           schema.RelationshipHasManyThrough,
		TargetResource: "Video",
		FieldName:      "Videos",
		JoinTable:      "article_videos",
		ForeignKey:     "article_id",
		AssociationKey: "video_id",
		Primary:        true,
	}).AddRelationship(&schema.Relationship{
		Type:           schema.RelationshipHasManyThrough,
		TargetResource: "User",
		FieldName:      "UserPermits",
		JoinTable:      "article_user_permits",
		ForeignKey:     "article_id",
		AssociationKey: "user_id",
	}).AddRelationship(&schema.Relationship{
		Type:           schema.RelationshipHasManyThrough,
		TargetResource: "Role",
		FieldName:      "RolePermits",
		JoinTable:      "article_role_permits",
		ForeignKey:     "article_id",
		AssociationKey: "role_id",
	})
	return s
}

// Clip returns the Clip resource, which stores its video as a direct foreign key
func Clip() *schema.ResourceSchema {
	s := schema.NewResourceSchema("Clip")
	s.AddField(primary("Id")).
		AddField(&schema.Field{Name: "Title", Type: Str()}).
		AddField(&schema.Field{Name: "VideoId", Type: NullInt()})
	s.AddRelationship(&schema.Relationship{
		Type:           schema.RelationshipBelongsTo,
		TargetResource: "Video",
		FieldName:      "Video",
		ForeignKey:     "VideoId",
		Nullable:       true,
	})
	return s
}

func simple(name string) *schema.ResourceSchema {
	s := schema.NewResourceSchema(name)
	s.AddField(primary("Id")).AddField(&schema.Field{Name: "Name", Type: Str()})
	return s
}

// NewRegistry returns a registry with Article, Clip, User, Role, Tag, Video
// and Category plus the @UserId, @RoleId and @Locale context attributes.
// Category is also a global virtual field, answered by Article.CategoryId.
func NewRegistry() *schema.Registry {
	reg := schema.NewRegistry()
	for _, s := range []*schema.ResourceSchema{
		Article(), Clip(),
		simple("User"), simple("Role"), simple("Tag"), simple("Video"), simple("Category"),
	} {
		if err := reg.Register(s); err != nil {
			panic(err)
		}
	}
	must(reg.RegisterVirtualField(&schema.Field{Name: "Category", Virtual: true, TargetType: "Category"}))
	must(reg.RegisterContextField(schema.UserIDField(NullInt())))
	must(reg.RegisterContextField(schema.RoleIDField(NullInt())))
	must(reg.RegisterContextField(schema.ValueField("Locale", NullStr())))
	must(reg.ValidateAll())
	return reg
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
