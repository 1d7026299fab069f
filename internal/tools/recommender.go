package tools

import (
	"fmt"
	"strings"
)

// CourseRecommender suggests elective courses from keywords describing the
// user's background and career goal.
type CourseRecommender struct{}

func (CourseRecommender) Name() string { return "рекомендация_курсов" }

var skillRules = []struct {
	label    string
	keywords []string
}{
	{"программирование", []string{"программирование", "python", "разработка", "coding"}},
	{"работа с данными", []string{"данные", "анализ", "data", "sql", "аналитик"}},
	{"продуктовый бэкграунд", []string{"продукт", "product", "менеджмент", "бизнес"}},
	{"ML/AI", []string{"ml", "машинное обучение", "нейросети", "искусственный интеллект"}},
}

var goalRules = []struct {
	label    string
	keywords []string
}{
	{"ML Engineer", []string{"ml engineer", "мл инженер"}},
	{"Data Analyst", []string{"data analyst", "аналитик данных"}},
	{"AI Product Developer", []string{"ai product", "продукт"}},
	{"Data Engineer", []string{"data engineer", "инженер данных"}},
}

var goalCourses = map[string][]string{
	"ML Engineer": {
		"- Продвинутое машинное обучение (Advanced ML)",
		"- Глубокое обучение (Deep Learning)",
		"- MLOps и внедрение моделей",
		"- Оптимизация и масштабирование моделей",
	},
	"Data Analyst": {
		"- Анализ больших данных (Big Data Analytics)",
		"- Визуализация данных",
		"- A/B тестирование и метрики",
		"- Python для анализа данных",
	},
	"AI Product Developer": {
		"- Управление AI-продуктами",
		"- UX для AI-систем",
		"- Экономика AI и монетизация",
		"- Agile и Scrum в AI-проектах",
	},
	"Data Engineer": {
		"- Архитектура данных",
		"- ETL/ELT процессы",
		"- Работа с Apache Spark, Kafka",
		"- Облачные платформы (AWS, GCP)",
	},
}

// goalOrder keeps the recommendation list deterministic.
var goalOrder = []string{"ML Engineer", "Data Analyst", "AI Product Developer", "Data Engineer"}

func (CourseRecommender) Run(query string) (string, error) {
	lower := strings.ToLower(query)

	var skills []string
	for _, rule := range skillRules {
		if containsAny(lower, rule.keywords) {
			skills = append(skills, rule.label)
		}
	}

	goals := map[string]bool{}
	for _, rule := range goalRules {
		if containsAny(lower, rule.keywords) {
			goals[rule.label] = true
		}
	}

	var recommendations []string
	for _, goal := range goalOrder {
		if goals[goal] {
			recommendations = append(recommendations, goalCourses[goal]...)
		}
	}

	goalLabels := make([]string, 0, len(goals))
	for _, goal := range goalOrder {
		if goals[goal] {
			goalLabels = append(goalLabels, goal)
		}
	}

	courses := strings.Join(recommendations, "\n")
	if courses == "" {
		courses = "Уточните ваш бэкграунд и цели для персонализированных рекомендаций."
	}

	return fmt.Sprintf(
		"На основе вашего бэкграунда (%s) и цели (%s), рекомендую следующие дисциплины:\n%s",
		orDefault(skills, "не указан"),
		orDefault(goalLabels, "не указана"),
		courses,
	), nil
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func orDefault(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}
