package dto

// GradingConfig describes how a batch of submissions should be graded.
// It is supplied by the client as a JSON-encoded multipart field and is
// immutable once a grading run starts.
type GradingConfig struct {
	TotalQuestions     int     `json:"totalQuestions" validate:"required,gt=0"`
	MarksPerQuestion   float64 `json:"marksPerQuestion" validate:"required,gt=0"`
	CompilationTimeout int     `json:"compilationTimeout" validate:"required,gt=0"`
	CourseName         string  `json:"courseName" validate:"required"`
	SectionName        string  `json:"sectionName" validate:"required"`
	AssignmentName     string  `json:"assignmentName" validate:"required"`
}

// TotalMarks recomputes the maximum achievable score. It is derived and
// never stored so the value cannot drift from the configuration.
func (c GradingConfig) TotalMarks() float64 {
	return float64(c.TotalQuestions) * c.MarksPerQuestion
}

// StudentResult holds one student's per-question scores and total as
// reported by the grading engine.
type StudentResult struct {
	Name      string    `json:"name"`
	Questions []float64 `json:"questions"`
	Total     float64   `json:"total"`
}

// CompilationError is one compiler diagnostic attributed to a student's
// submission file.
type CompilationError struct {
	Student  string `json:"student"`
	Question int    `json:"question"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// ScoreBucket is one entry of the score distribution histogram.
type ScoreBucket struct {
	Score float64 `json:"score"`
	Count int     `json:"count"`
}

// GradingResult is the canonical result model shared by all report
// artifacts. Statistics are engine-computed and passed through as-is.
type GradingResult struct {
	TotalStudents      int                `json:"totalStudents"`
	TotalFiles         int                `json:"totalFiles"`
	CompiledOK         int                `json:"compiledOk"`
	CompiledFail       int                `json:"compiledFail"`
	ParsingErrors      int                `json:"parsingErrors"`
	AverageScore       float64            `json:"averageScore"`
	HighestScore       float64            `json:"highestScore"`
	LowestScore        float64            `json:"lowestScore"`
	PerfectScores      int                `json:"perfectScores"`
	StudentsWithErrors int                `json:"studentsWithErrors"`
	Distribution       []ScoreBucket      `json:"distribution"`
	Students           []StudentResult    `json:"students"`
	ErrorLog           []CompilationError `json:"errorLog"`
}

// GradeResponse is the payload returned to clients after a grading run.
type GradeResponse struct {
	Success  bool               `json:"success"`
	Results  GradingResult      `json:"results"`
	ErrorLog []CompilationError `json:"errorLog"`
}
