package github

import (
	"encoding/json"

	"github.com/wankata/github-api-client/pkg/record"
)

// UserSchema allows the public profile fields returned by GET /users/{login}.
var UserSchema = record.MustSchema("User",
	"login", "id", "node_id", "avatar_url", "gravatar_id", "url", "html_url",
	"followers_url", "following_url", "gists_url", "starred_url",
	"subscriptions_url", "organizations_url", "repos_url", "events_url",
	"received_events_url", "type", "site_admin", "name", "company", "blog",
	"location", "email", "hireable", "bio", "twitter_username",
	"public_repos", "public_gists", "followers", "following", "created_at",
	"updated_at",
)

// AuthenticatedUserSchema adds the private account fields GET /user returns
// for the token owner.
var AuthenticatedUserSchema = UserSchema.MustExtend("AuthenticatedUser",
	"private_gists", "total_private_repos", "owned_private_repos",
	"disk_usage", "collaborators", "two_factor_authentication", "plan",
)

// User is a public GitHub profile.
type User struct {
	*record.Record
}

// NewUser builds a User, rejecting fields outside UserSchema.
func NewUser(initial map[string]any) (*User, error) {
	r, err := record.New(UserSchema, initial)
	if err != nil {
		return nil, err
	}
	return &User{Record: r}, nil
}

func (u *User) Login() string {
	s, _ := u.String("login")
	return s
}

func (u *User) ID() int64 {
	id, _ := u.Int("id")
	return id
}

// AuthenticatedUser is the profile of the token owner, private fields included.
type AuthenticatedUser struct {
	User
}

// NewAuthenticatedUser builds an AuthenticatedUser, rejecting fields outside
// AuthenticatedUserSchema.
func NewAuthenticatedUser(initial map[string]any) (*AuthenticatedUser, error) {
	r, err := record.New(AuthenticatedUserSchema, initial)
	if err != nil {
		return nil, err
	}
	return &AuthenticatedUser{User: User{Record: r}}, nil
}

// TwoFactorEnabled reports the two_factor_authentication flag; false when absent.
func (u *AuthenticatedUser) TwoFactorEnabled() bool {
	b, _ := u.Bool("two_factor_authentication")
	return b
}

// PlanName returns plan.name when the plan object is present.
func (u *AuthenticatedUser) PlanName() string {
	v, _ := u.Get("plan")
	plan, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	name, _ := plan["name"].(string)
	return name
}

var (
	_ json.Marshaler = (*User)(nil)
	_ json.Marshaler = (*AuthenticatedUser)(nil)
)
