package handlers

// Card is an image tile with translated copy.
type Card struct {
	Image    string
	TitleKey string
	BodyKey  string
	Href     string
}

// HomeData is the view model for the landing page.
type HomeData struct {
	HeroVideo  string
	HeroPoster string
	Excellence []Card
	Services   []Card
}

// BuildHomeData constructs the landing page sections.
func BuildHomeData(lang string) HomeData {
	return HomeData{
		HeroVideo:  "/static/media/hero.mp4",
		HeroPoster: "/static/img/home/hero.jpg",
		Excellence: []Card{
			{Image: "/static/img/home/exterior.jpg", TitleKey: "home.excellence.exterior.title", BodyKey: "home.excellence.exterior.body", Href: "/" + lang + "/galerie?cat=exterior"},
			{Image: "/static/img/home/interior.jpg", TitleKey: "home.excellence.interior.title", BodyKey: "home.excellence.interior.body", Href: "/" + lang + "/galerie?cat=interior"},
			{Image: "/static/img/home/pool.jpg", TitleKey: "home.excellence.pool.title", BodyKey: "home.excellence.pool.body", Href: "/" + lang + "/galerie?cat=pool"},
		},
		Services: []Card{
			{Image: "/static/img/services/concierge.jpg", TitleKey: "home.service.concierge.title", BodyKey: "home.service.concierge.body"},
			{Image: "/static/img/services/chef.jpg", TitleKey: "home.service.chef.title", BodyKey: "home.service.chef.body"},
			{Image: "/static/img/services/spa.jpg", TitleKey: "home.service.spa.title", BodyKey: "home.service.spa.body"},
			{Image: "/static/img/services/transport.jpg", TitleKey: "home.service.transport.title", BodyKey: "home.service.transport.body"},
			{Image: "/static/img/services/cleaning.jpg", TitleKey: "home.service.cleaning.title", BodyKey: "home.service.cleaning.body"},
			{Image: "/static/img/services/security.jpg", TitleKey: "home.service.security.title", BodyKey: "home.service.security.body"},
		},
	}
}
