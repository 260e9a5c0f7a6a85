package llm

import (
	"fmt"
	"strings"
)

// FallbackResponse returns a canned template when the chat model is
// unreachable. Selection is by keyword match on the prompt; the error is only
// appended as a trailing note.
func FallbackResponse(prompt string, errNote string) string {
	p := strings.ToLower(prompt)

	switch {
	case strings.Contains(p, "business plan") || strings.Contains(p, "comprehensive"):
		return fallbackBusinessPlan
	case strings.Contains(p, "cost") || strings.Contains(p, "financial") || strings.Contains(p, "budget"):
		return fallbackFinancial
	case strings.Contains(p, "launch") || strings.Contains(p, "register"):
		return fallbackLaunch
	case strings.Contains(p, "marketing"):
		return fallbackMarketing
	default:
		return fmt.Sprintf(fallbackGeneric, errNote)
	}
}

const fallbackBusinessPlan = `**Business Plan Framework**

Here's a structured approach to develop your business plan:

**1. Executive Summary**
- Define your business concept and value proposition
- Identify your target market and competitive advantage
- Outline financial projections and funding needs

**2. Market Analysis**
- Research your industry size and growth trends
- Analyze your competition and market positioning
- Define your ideal customer profile

**3. Operations Plan**
- Detail your day-to-day operations
- Identify required resources and staffing
- Establish quality control processes

**4. Marketing Strategy**
- Develop your brand positioning
- Choose effective marketing channels
- Create customer acquisition and retention plans

**5. Financial Projections**
- Estimate startup costs and ongoing expenses
- Project revenue streams and break-even analysis
- Plan for cash flow management

*Note: AI service temporarily unavailable, but this framework will guide your planning process.*`

const fallbackFinancial = `**Financial Planning Guidelines**

**Startup Costs to Consider:**
- Legal and licensing fees: $500-2,000
- Initial equipment and setup: $2,000-10,000
- Marketing and branding: $1,000-5,000
- Working capital (3-6 months expenses): Variable
- Professional services: $1,000-3,000

**Monthly Operating Expenses:**
- Rent/lease: Location dependent
- Utilities and services: $200-800
- Insurance: $300-1,000
- Marketing: 5-10% of projected revenue
- Miscellaneous: 10-15% buffer

**Revenue Planning:**
- Research similar businesses in your area
- Start with conservative estimates
- Plan for seasonal variations
- Build in growth assumptions after 6-12 months

*Note: These are general estimates. Research local costs for accuracy.*`

const fallbackLaunch = `**Business Launch Checklist**

**Legal Structure & Registration:**
- Choose business structure (LLC, Corporation, etc.)
- Register business name
- Obtain EIN from IRS
- Apply for required licenses and permits

**Financial Setup:**
- Open business bank account
- Set up accounting system
- Obtain business insurance
- Establish business credit

**Operations Setup:**
- Secure business location
- Purchase equipment and inventory
- Set up utilities and services
- Hire and train staff

**Marketing Launch:**
- Develop branding and marketing materials
- Build website and online presence
- Plan launch event or promotion
- Establish customer service procedures

**Timeline:** Most businesses need 8-12 weeks from start to launch.

*Note: Consult local business resources for region-specific requirements.*`

const fallbackMarketing = `**Marketing Strategy Framework**

**Target Customer Analysis:**
- Define demographic and psychographic profiles
- Identify pain points and needs
- Understand buying behaviors and preferences

**Marketing Mix (4 Ps):**
- Product: Unique value proposition
- Price: Competitive pricing strategy
- Place: Distribution channels
- Promotion: Marketing tactics and messaging

**Digital Marketing Channels:**
- Social media marketing (Facebook, Instagram, LinkedIn)
- Search engine optimization (SEO)
- Email marketing campaigns
- Content marketing and blogging

**Budget Allocation:**
- Start with 5-10% of projected revenue
- Focus on highest ROI channels first
- Track and measure all activities

*Note: Marketing service analysis temporarily unavailable.*`

const fallbackGeneric = `**Business Advisory Response**

Thank you for your question about business planning. While our advanced AI advisor is temporarily unavailable, here are some key principles to consider:

**Key Success Factors:**
- Validate your business idea with potential customers
- Start lean and test your assumptions
- Focus on solving real problems for your target market
- Build strong financial management practices
- Invest in customer relationships and retention

**Next Steps:**
- Conduct thorough market research
- Develop a minimum viable product/service
- Create a detailed business plan
- Secure adequate funding
- Build a strong team and advisor network

Please try again later for more detailed analysis, or consult with local business experts for personalized guidance.

*Service Note: %s*`
