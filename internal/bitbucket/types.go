package bitbucket

// Link is a hypermedia link.
type Link struct {
	Href string `json:"href"`
}

// Links holds the links loom reads.
type Links struct {
	HTML   Link `json:"html"`
	Avatar Link `json:"avatar"`
}

// User is an account as embedded in issues, comments and pull requests.
type User struct {
	AccountID   string `json:"account_id"`
	UUID        string `json:"uuid"`
	DisplayName string `json:"display_name"`
	Nickname    string `json:"nickname"`
	Links       Links  `json:"links"`
}

// Content is a rendered text field.
type Content struct {
	Raw string `json:"raw"`
}

// Named is any {"name": ...} reference (milestone, component, version).
type Named struct {
	Name string `json:"name"`
}

// Issue is a repository issue.
type Issue struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	Content   Content `json:"content"`
	State     string  `json:"state"`
	Kind      string  `json:"kind"`
	Priority  string  `json:"priority"`
	Reporter  *User   `json:"reporter"`
	Assignee  *User   `json:"assignee"`
	Milestone *Named  `json:"milestone"`
	Component *Named  `json:"component"`
	Version   *Named  `json:"version"`
	CreatedOn string  `json:"created_on"`
	UpdatedOn string  `json:"updated_on"`
	Links     Links   `json:"links"`
}

// Comment is an issue comment.
type Comment struct {
	ID        int     `json:"id"`
	Content   Content `json:"content"`
	User      *User   `json:"user"`
	CreatedOn string  `json:"created_on"`
	UpdatedOn string  `json:"updated_on"`
	Links     Links   `json:"links"`
}

// PullRequest is a repository pull request.
type PullRequest struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	State     string `json:"state"`
	Author    *User  `json:"author"`
	CreatedOn string `json:"created_on"`
	UpdatedOn string `json:"updated_on"`
	Links     Links  `json:"links"`
}

type page[T any] struct {
	Values []T    `json:"values"`
	Next   string `json:"next"`
}
