package lms

type (
	Course struct {
		ID          string `json:"_id"`
		Title       string `json:"title"`
		Subject     string `json:"subject,omitempty"`
		Description string `json:"description,omitempty"`
		Duration    string `json:"duration,omitempty"`
	}

	Lesson struct {
		ID       string `json:"_id"`
		Title    string `json:"title"`
		Content  string `json:"content,omitempty"`
		VideoURL string `json:"video_url,omitempty"`
		CourseID string `json:"course_id,omitempty"`
	}

	Quiz struct {
		ID       string   `json:"_id"`
		LessonID string   `json:"lesson_id,omitempty"`
		Question string   `json:"question"`
		Options  []string `json:"options,omitempty"`
		DueDate  string   `json:"due_date,omitempty"`
	}

	// QuizResult is the backend's grading of one submitted answer.
	QuizResult struct {
		CorrectAnswer string `json:"correct_answer"`
		Grade         int    `json:"grade"`
		Attempts      int    `json:"attempts"`
		Message       string `json:"Success,omitempty"`
	}

	Enrollment struct {
		ID                   string  `json:"_id"`
		CourseID             string  `json:"course_id"`
		StudentID            string  `json:"student_id,omitempty"`
		CompletionPercentage float64 `json:"completion_percentage"`
	}

	Certificate struct {
		ID           string `json:"_id"`
		EnrollmentID string `json:"enrollment_id"`
		IssuedOn     string `json:"issued_on,omitempty"`
	}

	Assignment struct {
		ID             string `json:"_id"`
		LessonID       string `json:"lesson_id,omitempty"`
		SubmissionText string `json:"submission_text,omitempty"`
		Grade          string `json:"grade,omitempty"`
	}

	User struct {
		ID    string `json:"_id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
)
