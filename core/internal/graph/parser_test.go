package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleQuery(t *testing.T) {
	doc, err := Parse(`query GetUsers {
		users(where: {status: {eq: "active"}}, limit: 10) {
			id
			name
			email
		}
	}`)
	require.NoError(t, err)
	assert.Equal(t, OpQuery, doc.Operation)
	assert.Equal(t, "GetUsers", doc.Name)
	require.Len(t, doc.Selections, 1)

	root := doc.Selections[0]
	assert.Equal(t, "users", root.Name)
	require.Len(t, root.Selections, 3)

	args := root.ArgMap()
	require.Contains(t, args, "where")
	require.Contains(t, args, "limit")
	assert.Equal(t, NodeNum, args["limit"].Type)
	assert.Equal(t, "10", args["limit"].Val)
}

func TestParseVariablesAndAlias(t *testing.T) {
	doc, err := Parse(`query GetUser($id: ID!, $active: Boolean = true) {
		user: users(id: $id, active: $active) {
			id
			displayName: name
		}
	}`)
	require.NoError(t, err)
	require.Len(t, doc.Variables, 2)
	assert.Equal(t, "id", doc.Variables[0].Name)
	assert.True(t, doc.Variables[0].NonNull)
	assert.False(t, doc.Variables[1].HasDefault == false && doc.Variables[1].Name != "active")

	root := doc.Selections[0]
	assert.Equal(t, "user", root.Alias)
	assert.Equal(t, "users", root.Name)

	field := root.Selections[1]
	assert.Equal(t, "displayName", field.Alias)
	assert.Equal(t, "name", field.Name)
}

func TestParseDirectivesAndFragments(t *testing.T) {
	doc, err := Parse(`
	fragment userFields on User {
		id
		name
	}
	query {
		users {
			...userFields
			email @include(if: $withEmail)
		}
	}`)
	require.NoError(t, err)
	require.Contains(t, doc.Fragments, "userFields")
	frag := doc.Fragments["userFields"]
	assert.Equal(t, "User", frag.OnType)
	require.Len(t, frag.Selections, 2)

	root := doc.Selections[0]
	require.Len(t, root.Selections, 2)
	assert.Equal(t, "...", root.Selections[0].Name)
	assert.Equal(t, "userFields", root.Selections[0].Alias)

	email := root.Selections[1]
	require.Len(t, email.Directives, 1)
	assert.Equal(t, "include", email.Directives[0].Name)
}

func TestParseNestedObjectAndListArgs(t *testing.T) {
	doc, err := Parse(`query {
		products(where: {price: {gte: 10.5, lte: 99.99}, tags: {in: ["a", "b"]}}) {
			id
		}
	}`)
	require.NoError(t, err)
	root := doc.Selections[0]
	where := root.ArgMap()["where"]
	require.Equal(t, NodeObj, where.Type)
	require.Len(t, where.Children, 2)

	price := where.Children[0]
	assert.Equal(t, "price", price.Name)
	assert.Equal(t, NodeObj, price.Type)

	tags := where.Children[1]
	assert.Equal(t, "tags", tags.Name)
	in := tags.Children[0]
	assert.Equal(t, NodeList, in.Type)
	require.Len(t, in.Children, 2)
	assert.Equal(t, "a", in.Children[0].Val)
}

func TestParseMutation(t *testing.T) {
	doc, err := Parse(`mutation CreateUser {
		insert_users(input: {name: "Ada", active: true, meta: null}) {
			id
		}
	}`)
	require.NoError(t, err)
	assert.Equal(t, OpMutation, doc.Operation)
	assert.Equal(t, "CreateUser", doc.Name)
}

func TestParseRejectsMalformedSelection(t *testing.T) {
	_, err := Parse(`query { users(`)
	assert.Error(t, err)
}

func TestLexStringEscapesAndBlockStrings(t *testing.T) {
	doc, err := Parse(`query {
		users(where: {bio: {eq: "line one\nline two"}}) {
			id
		}
	}`)
	require.NoError(t, err)
	where := doc.Selections[0].ArgMap()["where"]
	bio := where.Children[0].Children[0]
	assert.Equal(t, "line one\nline two", bio.Val)

	doc, err = Parse(`query {
		users(where: {bio: {eq: """block "text" here"""}}) {
			id
		}
	}`)
	require.NoError(t, err)
	where = doc.Selections[0].ArgMap()["where"]
	assert.Equal(t, `block "text" here`, where.Children[0].Children[0].Val)
}
