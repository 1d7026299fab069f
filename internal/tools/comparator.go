package tools

// ProgramComparator returns a fixed side-by-side comparison of the two
// master's programs.
type ProgramComparator struct{}

func (ProgramComparator) Name() string { return "сравнение_программ" }

const comparison = `Сравнение программ:

🔹 **Искусственный интеллект (AI)**:
- Фокус: Техническая подготовка ML-инженеров, глубокое обучение, исследования.
- Карьера: ML Engineer, Data Scientist, Researcher.
- Партнёры: Sber AI, X5, Ozon Bank, МТС, Яндекс.
- Подходит тем, кто хочет глубоко погрузиться в ML и разработку моделей.

🔹 **AI Product**:
- Фокус: Разработка AI-продуктов, управление проектами, взаимодействие бизнеса и технологий.
- Карьера: AI Product Manager, Product Developer, Tech Lead.
- Партнёры: Napoleon IT, Raft, Genotek, AIRI.
- Подходит тем, кто хочет создавать продукты на основе ИИ, а не только модели.

💡 Совет: Выберите 'AI', если хотите быть инженером. Выберите 'AI Product', если хотите управлять продуктами или командами.`

func (ProgramComparator) Run(string) (string, error) {
	return comparison, nil
}
