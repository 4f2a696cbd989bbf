package selection

// Batch is the typed form of one orchestrator push. The HTTP boundary
// converts raw JSON into this shape; nothing below it touches maps of
// untyped values.
type Batch struct {
	NewUsers               map[string]NewUser
	HealthAssessments      map[string][]AssessmentEntry
	Feedback               map[string]Feedback
	NewMissionsAndContents map[string]MissionsUpdate
	EscalationLevels       map[string][]EscalationEntry
	DisabledUsers          []string
}

func (b Batch) Empty() bool {
	return len(b.NewUsers) == 0 &&
		len(b.HealthAssessments) == 0 &&
		len(b.Feedback) == 0 &&
		len(b.NewMissionsAndContents) == 0 &&
		len(b.EscalationLevels) == 0 &&
		len(b.DisabledUsers) == 0
}

type NewUser struct {
	EnrolmentDate     string
	Gender            string
	Age               *float64
	Education         string
	RecruitmentCenter string
}

// AssessmentEntry is one health-habit assessment. Components attach to
// the pillar the entry carries (nutrition or emotional wellbeing);
// EmotionalDistress folds into the emotional-wellbeing components.
type AssessmentEntry struct {
	Timestamp         string
	Pillars           map[string]float64
	Components        map[string]float64
	EmotionalDistress *float64
}

type EscalationEntry struct {
	Level int
}

type MissionsUpdate struct {
	UpdateTimestamp string
	NewMissions     []MissionSelection
}

type MissionSelection struct {
	MissionID          string
	Recommendations    []string
	Resources          []string
	Prescribed         bool
	SelectionTimestamp string
	FinishTimestamp    string
}

// Feedback event names and content types on the wire.
const (
	EventSent         = "notification_sent"
	EventOpened       = "notification_opened"
	EventRated        = "notification_rated"
	EventAccomplished = "mission_accomplished"

	ContentRecommendation = "recommendation"
	ContentResource       = "resource"
)

type Feedback struct {
	Events []FeedbackEvent
}

type FeedbackEvent struct {
	Name          string
	Timestamp     string
	CorrelationID string
	ContentID     string
	ContentType   string
	MissionID     string
	Rating        Rating
	Score         *float64
	EndOfMission  *bool

	// seq is the monotonic ingestion order, assigned by the service;
	// it breaks timestamp ties deterministically.
	seq int64
}

// Rating carries either a thumbs verdict or a numeric value depending
// on the configured reward type.
type Rating struct {
	Thumb string
	Value *float64
}

// endOfMission reports the prompted/end-of-period flag, with the
// caller's default when the emitter omitted it.
func (e FeedbackEvent) endOfMission(def bool) bool {
	if e.EndOfMission == nil {
		return def
	}
	return *e.EndOfMission
}

func (e FeedbackEvent) isSentRecommendation() bool {
	return e.Name == EventSent && e.ContentType == ContentRecommendation
}

func (e FeedbackEvent) isRatedRecommendation() bool {
	return e.Name == EventRated && e.ContentType == ContentRecommendation
}

func (e FeedbackEvent) isRatedResource() bool {
	return e.Name == EventRated && e.ContentType == ContentResource
}
