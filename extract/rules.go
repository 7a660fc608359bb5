package extract

// Metric names an engagement counter on a post.
type Metric string

const (
	MetricLike    Metric = "like"
	MetricComment Metric = "comment"
	MetricRepost  Metric = "repost"
	MetricShare   Metric = "share"
)

// MetricLocator lists the base icon labels that identify one metric, in
// lookup order. Each label is expanded through Rules.LabelVariants, so a new
// locale or toggled state is a table entry rather than new code.
type MetricLocator struct {
	Metric Metric   `yaml:"metric"`
	Labels []string `yaml:"labels"`
}

// Rules are the host page conventions the extractor relies on. They are
// data so that a markup change on the host is a configuration change.
type Rules struct {
	// PostSelector matches every post container, root or reply.
	PostSelector string `yaml:"post_selector"`
	// TimeSelector matches the element carrying the publish timestamp.
	TimeSelector string `yaml:"time_selector"`
	// TimeAttr is the attribute of TimeSelector holding the timestamp.
	TimeAttr string `yaml:"time_attr"`
	// PermalinkSelector matches the anchor whose href identifies the post.
	PermalinkSelector string `yaml:"permalink_selector"`
	// CaptionSelector matches the post body container.
	CaptionSelector string `yaml:"caption_selector"`
	// IconTag is the element type carrying action labels.
	IconTag string `yaml:"icon_tag"`
	// IconLabelAttr is the attribute holding the action label.
	IconLabelAttr string `yaml:"icon_label_attr"`
	// ControlSelector matches the interactive control wrapping an icon.
	ControlSelector string `yaml:"control_selector"`
	// CountSelector matches the count text inside a control.
	CountSelector string `yaml:"count_selector"`
	// RootLabels are icon labels present only on root posts.
	RootLabels []string `yaml:"root_labels"`
	// LabelVariants expand a base label; "%s" is replaced by the label.
	LabelVariants []string `yaml:"label_variants"`
	// Metrics is the locator table per engagement counter.
	Metrics []MetricLocator `yaml:"metrics"`
	// TranslateLabels are trailing caption affordances that are not content.
	TranslateLabels []string `yaml:"translate_labels"`
	// ProfileTextSelector matches the short text fragments scanned for the
	// profile header.
	ProfileTextSelector string `yaml:"profile_text_selector"`
	// FollowerLabels mark the follower-count fragment.
	FollowerLabels []string `yaml:"follower_labels"`
}

// DefaultRules returns the conventions of the Threads web client, with
// Traditional Chinese and English labels.
func DefaultRules() Rules {
	return Rules{
		PostSelector:      `div[data-pressable-container="true"]`,
		TimeSelector:      "time",
		TimeAttr:          "datetime",
		PermalinkSelector: `a[href*="/post/"]`,
		CaptionSelector:   "div.x1a6qonq",
		IconTag:           "svg",
		IconLabelAttr:     "aria-label",
		ControlSelector:   `div[role="button"]`,
		CountSelector:     "span span, span",
		RootLabels:        []string{"轉發", "Repost", "Share"},
		LabelVariants:     []string{"%s", "收回%s", "Un%s", "取消%s"},
		Metrics: []MetricLocator{
			{Metric: MetricLike, Labels: []string{"讚", "Like"}},
			{Metric: MetricComment, Labels: []string{"回覆", "Reply", "Comment"}},
			{Metric: MetricRepost, Labels: []string{"轉發", "Repost"}},
			{Metric: MetricShare, Labels: []string{"分享", "Share"}},
		},
		TranslateLabels:     []string{"翻譯", "Translate"},
		ProfileTextSelector: "span",
		FollowerLabels:      []string{"粉絲", "followers"},
	}
}

// Merge returns r with every empty field filled from def.
func (r Rules) Merge(def Rules) Rules {
	str := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	list := func(v *[]string, d []string) {
		if len(*v) == 0 {
			*v = d
		}
	}
	str(&r.PostSelector, def.PostSelector)
	str(&r.TimeSelector, def.TimeSelector)
	str(&r.TimeAttr, def.TimeAttr)
	str(&r.PermalinkSelector, def.PermalinkSelector)
	str(&r.CaptionSelector, def.CaptionSelector)
	str(&r.IconTag, def.IconTag)
	str(&r.IconLabelAttr, def.IconLabelAttr)
	str(&r.ControlSelector, def.ControlSelector)
	str(&r.CountSelector, def.CountSelector)
	str(&r.ProfileTextSelector, def.ProfileTextSelector)
	list(&r.RootLabels, def.RootLabels)
	list(&r.LabelVariants, def.LabelVariants)
	list(&r.TranslateLabels, def.TranslateLabels)
	list(&r.FollowerLabels, def.FollowerLabels)
	if len(r.Metrics) == 0 {
		r.Metrics = def.Metrics
	}
	return r
}
