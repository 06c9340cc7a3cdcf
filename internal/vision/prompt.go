package vision

// systemPrompt describes the seven features the backend reports.
const systemPrompt = "You are an expert web penetration tester analyzing website screenshots. " +
	"Identify the following features with yes/no and confidence score (0-1):\n" +
	"1. Is it an old-looking site? (outdated design, broken CSS, early 2000s look)\n" +
	"2. Is there a login page? (look for input fields, username/password prompts)\n" +
	"3. Is it a full webapp? (complex functionality beyond basic pages)\n" +
	"4. Is it a custom 404 page? (error page with custom styling)\n" +
	"5. Is it a parked domain? (placeholder page with ads, no real functionality)\n" +
	"6. What technologies are likely being used? (frameworks, CMS, etc.)\n" +
	"7. Are there any obvious security issues visible?\n\n" +
	"Format your response as a JSON with these keys: old_looking, login_page, webapp, " +
	"custom_404, parked_domain, technologies, security_issues. For each feature except " +
	"'technologies' and 'security_issues', include a boolean 'detected' field and a float " +
	"'confidence' field between 0 and 1. For 'technologies' and 'security_issues', provide lists."

const userPrompt = "Analyze this website screenshot and provide the requested information as JSON:"

// maxTokens caps the completion length of a single analysis.
const maxTokens = 800
