package i18n

import "fmt"

const (
	persistentTitle   = "KNOWLEDGE AI"
	persistentTagline = "\"A high-performance research sanctuary for axiomatic wisdom.\""
)

// Strings is the display copy for one language.
type Strings struct {
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle"`
	Tagline         string `json:"tagline"`
	Upload          string `json:"upload"`
	UploadDesc      string `json:"uploadDesc"`
	DisclaimerTitle string `json:"disclaimerTitle"`
	DisclaimerBody  string `json:"disclaimerBody"`
	Initializing    string `json:"initializing"`
	Synthesizing    string `json:"synthesizing"`
	Decoding        string `json:"decoding"`
	Axioms          string `json:"axioms"`
	From            string `json:"from"`
	ChatTitle       string `json:"chatTitle"`
	ChatDesc        string `json:"chatDesc"`
	ChatPlaceholder string `json:"chatPlaceholder"`
	EmptyDialogue   string `json:"emptyDialogue"`
	DialogueReady   string `json:"dialogueReady"`
	Send            string `json:"send"`
	YouLabel        string `json:"youLabel"`
	ReplyLabel      string `json:"replyLabel"`
	NewSession      string `json:"newSession"`
	ViewDocument    string `json:"viewDocument"`
	ViewSanctuary   string `json:"viewSanctuary"`
	AxiomLabel      string `json:"axiomLabel"`
	Footer          string `json:"footer"`
	AboutTitle      string `json:"aboutTitle"`
	About           string `json:"about"`
	HelpTitle       string `json:"helpTitle"`
	Help            string `json:"help"`

	Terminal TerminalStrings `json:"terminal"`
}

// TerminalStrings is the copy only the terminal UI shows: hints, key
// legend descriptions and the document panel labels.
type TerminalStrings struct {
	PathPlaceholder  string `json:"pathPlaceholder"`
	PathHint         string `json:"pathHint"`
	PathRequired     string `json:"pathRequired"`
	GalleryHint      string `json:"galleryHint"`
	UploadHelp       string `json:"uploadHelp"`
	MessageHelp      string `json:"messageHelp"`
	WaitingHelp      string `json:"waitingHelp"`
	ExtractionFailed string `json:"extractionFailed"`

	FileLabel    string `json:"fileLabel"`
	SizeLabel    string `json:"sizeLabel"`
	PagesLabel   string `json:"pagesLabel"`
	PagesUnknown string `json:"pagesUnknown"`
	NoTextLayer  string `json:"noTextLayer"`
	BackHint     string `json:"backHint"`

	StatusLabel   string `json:"statusLabel"`
	ViewLabel     string `json:"viewLabel"`
	LanguageLabel string `json:"languageLabel"`
	AxiomsLabel   string `json:"axiomsLabel"`
	TurnsLabel    string `json:"turnsLabel"`

	KeysTitle   string `json:"keysTitle"`
	KeyEnter    string `json:"keyEnter"`
	KeyArrows   string `json:"keyArrows"`
	KeySpace    string `json:"keySpace"`
	KeyTab      string `json:"keyTab"`
	KeyLanguage string `json:"keyLanguage"`
	KeyReset    string `json:"keyReset"`
	KeyScroll   string `json:"keyScroll"`
	KeyEsc      string `json:"keyEsc"`
	KeyQuit     string `json:"keyQuit"`
}

var tables = map[Language]Strings{
	English: {
		Title:           persistentTitle,
		Subtitle:        "An extension of the 5minute Paper project",
		Tagline:         persistentTagline,
		Upload:          "Upload your Book / File",
		UploadDesc:      "Transmit your document into the core for intellectual synthesis.",
		DisclaimerTitle: "THE RESEARCHER'S PROTOCOL",
		DisclaimerBody:  "This sanctuary is designed to organize, synthesize, and facilitate deep brainstorming. However, it is NOT a replacement for direct reading. To capture the true essence and soul of the wisdom, the researcher must engage with the original text directly. Use this tool to sharpen your insights, not to bypass the fundamental act of study.",
		Initializing:    "Initializing Neural Link...",
		Synthesizing:    "Analyzing Authorial DNA...",
		Decoding:        "Decoding philosophical intent and linguistic structure.",
		Axioms:          "Knowledge Axioms",
		From:            "Stylistic extractions from:",
		ChatTitle:       "Engage Sanctuary Dialogue",
		ChatDesc:        "Deep interrogation of the document's metaphysical structure.",
		ChatPlaceholder: "Interrogate the core wisdom...",
		EmptyDialogue:   "\"The beginning of wisdom is the definition of terms.\"",
		DialogueReady:   "Dialogue Sanctuary Ready",
		Send:            "Send",
		YouLabel:        "You",
		ReplyLabel:      "Sanctuary",
		NewSession:      "New Session",
		ViewDocument:    "View Document",
		ViewSanctuary:   "Research Sanctuary",
		AxiomLabel:      "Axiomatic Concept %02d",
		Footer:          "AESTHETIC INTELLECTUAL SANCTUARY",
		AboutTitle:      "About the Sanctuary",
		About:           "Knowledge AI is an elite research sanctuary designed by Oussama SEBROU. It facilitates the deep extraction of axiomatic wisdom from dense academic texts, allowing researchers to interface directly with complex knowledge structures.",
		HelpTitle:       "Researcher's Guide",
		Help:            "1. Upload your primary text.\n2. Review the synthesized Axioms.\n3. Engage in the dialogue sanctuary for profound interrogation of the content.",
		Terminal: TerminalStrings{
			PathPlaceholder:  "Path to a PDF, e.g. ~/papers/thesis.pdf",
			PathHint:         "Type the path of a PDF in the composer and press Enter.",
			PathRequired:     "Enter the path to a PDF.",
			GalleryHint:      "←/→/↑/↓ select a card • Enter or Space flips it",
			UploadHelp:       "Enter: upload • Ctrl+L: language • ?: keys • Esc: clear",
			MessageHelp:      "Enter: send • Tab: view • Ctrl+R: new session • ?: keys",
			WaitingHelp:      "Waiting for the sanctuary… Ctrl+R starts over.",
			ExtractionFailed: "Extraction failed: %v",
			FileLabel:        "File",
			SizeLabel:        "Size",
			PagesLabel:       "Pages",
			PagesUnknown:     "unknown",
			NoTextLayer:      "No text layer could be read from this PDF.",
			BackHint:         "Tab returns to the sanctuary.",
			StatusLabel:      "Status",
			ViewLabel:        "View",
			LanguageLabel:    "Lang",
			AxiomsLabel:      "Axioms",
			TurnsLabel:       "Turns",
			KeysTitle:        "Keys",
			KeyEnter:         "Upload / send / flip",
			KeyArrows:        "Select card",
			KeySpace:         "Flip card",
			KeyTab:           "Toggle document view",
			KeyLanguage:      "Switch language",
			KeyReset:         "New session",
			KeyScroll:        "Scroll",
			KeyEsc:           "Clear / close",
			KeyQuit:          "Quit",
		},
	},
	Arabic: {
		Title:           persistentTitle,
		Subtitle:        "امتداد لمشروع 5minute Paper",
		Tagline:         persistentTagline,
		Upload:          "رفع الكتاب / الملف",
		UploadDesc:      "أرسل وثيقتك إلى النواة من أجل التوليف الفكري العميق.",
		DisclaimerTitle: "بروتوكول الباحث الفكري",
		DisclaimerBody:  "صُمم هذا الملاذ لتنظيم الأفكار وتسهيل العصف الذهني المعمق، لكنه ليس بديلاً عن القراءة المباشرة بأي حال من الأحوال. لاستيعاب جوهر الحكمة وروح النص، يجب على الباحث المطالعة المباشرة للملف. استخدم هذه الأداة لشحذ رؤيتك وتسهيل الوصول للمحتوى، لا لتجاوز فعل القراءة الجوهري.",
		Initializing:    "جارٍ تهيئة الارتباط العصبي...",
		Synthesizing:    "تحليل البنية البيانية للكاتب...",
		Decoding:        "فك رموز القصد الفلسفي والنسق اللغوي.",
		Axioms:          "البديهيات المعرفية",
		From:            "استخلاصات بيانية من:",
		ChatTitle:       "حوار الملاذ الفكري",
		ChatDesc:        "استجواب عميق للبنية الميتافيزيقية للوثيقة.",
		ChatPlaceholder: "استجوب جوهر الحكمة...",
		EmptyDialogue:   "\"بداية الحكمة تعريف المصطلحات.\"",
		DialogueReady:   "ملاذ الحوار جاهز",
		Send:            "إرسال",
		YouLabel:        "أنت",
		ReplyLabel:      "الملاذ",
		NewSession:      "جلسة جديدة",
		ViewDocument:    "عرض الوثيقة",
		ViewSanctuary:   "الملاذ البحثي",
		AxiomLabel:      "المفهوم البديهي %02d",
		Footer:          "الملاذ الفكري الجمالي",
		AboutTitle:      "حول الملاذ",
		About:           "Knowledge AI هو ملاذ بحثي متميز صممه أسامة صبره. يعمل على تسهيل الاستخراج العميق للحكمة البديهية من النصوص الأكاديمية المعقدة، مما يسمح للباحثين بالتفاعل مباشرة مع هياكل المعرفة العميقة.",
		HelpTitle:       "دليل الباحث",
		Help:            "١. قم بتحميل النص الأساسي الخاص بك.\n٢. راجع البديهيات المستخلصة.\n٣. انخرط في حوار الملاذ لاستجواب محتوى النص بشكل عميق.",
		Terminal: TerminalStrings{
			PathPlaceholder:  "مسار ملف PDF، مثل ~/papers/thesis.pdf",
			PathHint:         "اكتب مسار ملف PDF في خانة الإدخال ثم اضغط Enter.",
			PathRequired:     "أدخل مسار ملف PDF.",
			GalleryHint:      "←/→/↑/↓ لاختيار بطاقة • Enter أو Space لقلبها",
			UploadHelp:       "Enter: رفع • Ctrl+L: اللغة • ?: المفاتيح • Esc: مسح",
			MessageHelp:      "Enter: إرسال • Tab: العرض • Ctrl+R: جلسة جديدة • ?: المفاتيح",
			WaitingHelp:      "بانتظار الملاذ… Ctrl+R للبدء من جديد.",
			ExtractionFailed: "تعذر الاستخلاص: %v",
			FileLabel:        "الملف",
			SizeLabel:        "الحجم",
			PagesLabel:       "الصفحات",
			PagesUnknown:     "غير معروف",
			NoTextLayer:      "تعذرت قراءة أي نص من هذا الملف.",
			BackHint:         "اضغط Tab للعودة إلى الملاذ.",
			StatusLabel:      "الحالة",
			ViewLabel:        "العرض",
			LanguageLabel:    "اللغة",
			AxiomsLabel:      "البديهيات",
			TurnsLabel:       "الأدوار",
			KeysTitle:        "المفاتيح",
			KeyEnter:         "رفع / إرسال / قلب",
			KeyArrows:        "اختيار بطاقة",
			KeySpace:         "قلب البطاقة",
			KeyTab:           "تبديل عرض الوثيقة",
			KeyLanguage:      "تبديل اللغة",
			KeyReset:         "جلسة جديدة",
			KeyScroll:        "تمرير",
			KeyEsc:           "مسح / إغلاق",
			KeyQuit:          "خروج",
		},
	},
}

// For returns the display strings for lang. Unknown languages get English.
func For(lang Language) Strings {
	if table, ok := tables[lang]; ok {
		return table
	}
	return tables[English]
}

// AxiomHeading formats the card label for the zero-based index.
func (s Strings) AxiomHeading(index int) string {
	return fmt.Sprintf(s.AxiomLabel, index+1)
}
