package schema_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/contentq/internal/orm/schema"
	"github.com/conduit-lang/contentq/internal/orm/schema/schematest"
)

func TestRegistry(t *testing.T) {
	t.Run("case-insensitive lookups", func(t *testing.T) {
		reg := schematest.NewRegistry()

		s, ok := reg.Resource("article")
		require.True(t, ok)
		assert.Equal(t, "Article", s.Name)

		fields, err := reg.GetFields("ARTICLE")
		require.NoError(t, err)
		assert.Contains(t, fields, "ownerid")
		assert.Equal(t, "OwnerId", fields["ownerid"].Name)

		_, err = reg.GetFields("Missing")
		assert.Error(t, err)
	})

	t.Run("associations become global virtual fields", func(t *testing.T) {
		reg := schematest.NewRegistry()

		virtual := reg.GetGlobalVirtualFields()
		tags, ok := virtual["tags"]
		require.True(t, ok)
		assert.True(t, tags.Virtual)
		assert.Equal(t, "Tag", tags.TargetType)
		require.NotNil(t, tags.Type)
		assert.Equal(t, schema.TypeInt, tags.Type.BaseType)
	})

	t.Run("context fields", func(t *testing.T) {
		reg := schematest.NewRegistry()

		ctxFields := reg.GetContextFields()
		assert.Contains(t, ctxFields, "userid")
		assert.Contains(t, ctxFields, "locale")

		err := reg.RegisterContextField(schema.UserIDField(schematest.Int()))
		assert.Error(t, err)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		reg := schematest.NewRegistry()
		err := reg.Register(schematest.Article())
		assert.Error(t, err)
	})

	t.Run("list and stats", func(t *testing.T) {
		reg := schematest.NewRegistry()
		assert.Equal(t, []string{"Article", "Category", "Clip", "Role", "Tag", "User", "Video"}, reg.List())

		stats := reg.GetStats()
		assert.Equal(t, 7, stats.TotalResources)
		assert.Equal(t, 4, stats.TotalAssociations)
		assert.Equal(t, 3, stats.TotalContextFields)
	})

	t.Run("clear", func(t *testing.T) {
		reg := schematest.NewRegistry()
		reg.Clear()
		assert.Equal(t, 0, reg.Count())
		assert.Empty(t, reg.GetGlobalVirtualFields())
	})

	t.Run("concurrent reads", func(t *testing.T) {
		reg := schematest.NewRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = reg.GetFields("Article")
				_ = reg.GetGlobalVirtualFields()
			}()
		}
		wg.Wait()
	})
}

func TestRegistryVirtualFields(t *testing.T) {
	reg := schema.NewRegistry()

	err := reg.RegisterVirtualField(&schema.Field{Name: "Tags"})
	assert.Error(t, err)

	err = reg.RegisterVirtualField(&schema.Field{Name: "Topics", Virtual: true})
	assert.Error(t, err, "target resource is required")

	require.NoError(t, reg.RegisterVirtualField(&schema.Field{Name: "Topics", Virtual: true, TargetType: "Topic"}))
	assert.Error(t, reg.ValidateAll(), "Topic is not registered yet")

	topic := schema.NewResourceSchema("Topic")
	topic.AddField(&schema.Field{
		Name:        "Id",
		Type:        &schema.TypeSpec{BaseType: schema.TypeUUID},
		Constraints: []schema.Constraint{{Type: schema.ConstraintPrimary}},
	})
	require.NoError(t, reg.Register(topic))
	require.NoError(t, reg.ValidateAll())

	f := reg.GetGlobalVirtualFields()["topics"]
	require.NotNil(t, f.Type)
	assert.Equal(t, schema.TypeUUID, f.Type.BaseType)
	assert.Equal(t, "Topics", f.MapName)
}

func TestRegistryValidation(t *testing.T) {
	tests := []struct {
		name   string
		schema func() *schema.ResourceSchema
		errMsg string
	}{
		{
			name: "missing primary key",
			schema: func() *schema.ResourceSchema {
				s := schema.NewResourceSchema("Post")
				s.AddField(&schema.Field{Name: "Title", Type: schematest.Str()})
				return s
			},
			errMsg: "must have a primary key",
		},
		{
			name: "nullable primary key",
			schema: func() *schema.ResourceSchema {
				s := schema.NewResourceSchema("Post")
				s.AddField(&schema.Field{
					Name:        "Id",
					Type:        schematest.NullInt(),
					Constraints: []schema.Constraint{{Type: schema.ConstraintPrimary}},
				})
				return s
			},
			errMsg: "must be non-nullable",
		},
		{
			name: "unknown owner field",
			schema: func() *schema.ResourceSchema {
				s := schematest.Clip()
				s.OwnerField = "AuthorId"
				return s
			},
			errMsg: "ownership field does not exist",
		},
		{
			name: "missing foreign key field",
			schema: func() *schema.ResourceSchema {
				s := schematest.Clip()
				delete(s.Fields, "VideoId")
				return s
			},
			errMsg: "foreign key field VideoId does not exist",
		},
		{
			name: "two primary associations to one target",
			schema: func() *schema.ResourceSchema {
				s := schematest.Article()
				s.Relationships["UserPermits"].Primary = true
				s.AddRelationship(&schema.Relationship{
					Type:           schema.RelationshipHasManyThrough,
					TargetResource: "User",
					FieldName:      "Editors",
					JoinTable:      "article_editors",
					ForeignKey:     "article_id",
					AssociationKey: "user_id",
					Primary:        true,
				})
				return s
			},
			errMsg: "already has a primary association",
		},
		{
			name: "incomplete join table",
			schema: func() *schema.ResourceSchema {
				s := schematest.Article()
				s.Relationships["Tags"].AssociationKey = ""
				return s
			},
			errMsg: "requires join_table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.NewRegistry().Register(tt.schema())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateAllForeignKeyType(t *testing.T) {
	reg := schema.NewRegistry()

	video := schema.NewResourceSchema("Video")
	video.AddField(&schema.Field{
		Name:        "Id",
		Type:        &schema.TypeSpec{BaseType: schema.TypeUUID},
		Constraints: []schema.Constraint{{Type: schema.ConstraintPrimary}},
	})
	require.NoError(t, reg.Register(video))
	require.NoError(t, reg.Register(schematest.Clip()))

	err := reg.ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "foreign key VideoId has type int")
}
