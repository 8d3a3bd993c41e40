package model

type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

type Scientist struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt,omitempty"`
	User      User   `json:"user"`
}

type Participant struct {
	ID          string  `json:"id"`
	CreatedAt   string  `json:"createdAt,omitempty"`
	CompletedAt *string `json:"completedAt,omitempty"`
	User        User    `json:"user"`
}

type Experiment struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Scientists  []Scientist    `json:"scientists,omitempty"`
	Timeline    []TimelineStep `json:"timeline,omitempty"`
}

// ExperimentWithTimeline is the backend's fetch payload: the experiment
// plus sibling fields we don't model. Both the per-id fetch and the user
// experiments list use this shape.
type ExperimentWithTimeline struct {
	Experiment `json:"experiment"`
}

// HasScientist reports whether userID appears in the assigned-scientists
// list. The timeline editor is only available to assigned scientists.
func (e ExperimentWithTimeline) HasScientist(userID string) bool {
	for _, s := range e.Experiment.Scientists {
		if s.User.ID == userID {
			return true
		}
	}
	return false
}

// Task is an auxiliary reference record (e.g. available trigger catalogs)
// the editor offers when configuring blocks.
type Task struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

type CreateExperiment struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	UserID      string `json:"userId,omitempty"`
}
